package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogaswara/account-service/internal/domain/entity"
	repo "github.com/yogaswara/account-service/internal/domain/repository"
	"github.com/yogaswara/account-service/pkg/apperr"
	"github.com/yogaswara/account-service/pkg/helpers"
	"github.com/yogaswara/account-service/pkg/mailer"
)

// --- fakes ---

type fakeAccountRepo struct {
	accounts map[string]*entity.Account
	nextID   int
	failNext error
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: map[string]*entity.Account{}}
}

func (f *fakeAccountRepo) takeErr() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func copyAccount(a *entity.Account) *entity.Account {
	c := *a
	return &c
}

func (f *fakeAccountRepo) Create(_ context.Context, a *entity.Account) error {
	if err := f.takeErr(); err != nil {
		return err
	}
	f.nextID++
	a.ID = fmt.Sprintf("acc-%d", f.nextID)
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	f.accounts[a.ID] = copyAccount(a)
	return nil
}

func (f *fakeAccountRepo) GetByID(_ context.Context, id string) (*entity.Account, error) {
	if err := f.takeErr(); err != nil {
		return nil, err
	}
	a, ok := f.accounts[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return copyAccount(a), nil
}

func (f *fakeAccountRepo) GetByPhone(_ context.Context, phone string) (*entity.Account, error) {
	if err := f.takeErr(); err != nil {
		return nil, err
	}
	for _, a := range f.accounts {
		if a.Phone != nil && *a.Phone == phone {
			return copyAccount(a), nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeAccountRepo) GetByEmail(_ context.Context, email string) (*entity.Account, error) {
	for _, a := range f.accounts {
		if a.Email != nil && *a.Email == email {
			return copyAccount(a), nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeAccountRepo) UpdateProfile(_ context.Context, id string, p repo.ProfilePatch) (*entity.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, repo.ErrNotMatched
	}
	a.DisplayName = p.DisplayName
	a.Email = p.Email
	a.Address = p.Address
	a.UpdatedAt = time.Now()
	return copyAccount(a), nil
}

func (f *fakeAccountRepo) SetPassword(_ context.Context, id string, hash string) error {
	a, ok := f.accounts[id]
	if !ok {
		return repo.ErrNotMatched
	}
	a.PasswordHash = &hash
	return nil
}

func (f *fakeAccountRepo) SetAvatar(_ context.Context, id string, url string) error {
	a, ok := f.accounts[id]
	if !ok {
		return repo.ErrNotMatched
	}
	a.AvatarURL = url
	return nil
}

func (f *fakeAccountRepo) SetResetToken(_ context.Context, id string, token string, expiresAt time.Time) error {
	a, ok := f.accounts[id]
	if !ok {
		return repo.ErrNotMatched
	}
	a.ResetToken = &token
	a.ResetExpiresAt = &expiresAt
	return nil
}

func (f *fakeAccountRepo) ConsumeResetToken(_ context.Context, token string, now time.Time, newHash string) (*entity.Account, error) {
	for _, a := range f.accounts {
		if a.ResetToken != nil && *a.ResetToken == token && a.ResetExpiresAt.After(now) {
			a.PasswordHash = &newHash
			a.ResetToken = nil
			a.ResetExpiresAt = nil
			t := now
			a.PasswordResetAt = &t
			return copyAccount(a), nil
		}
	}
	return nil, repo.ErrNotMatched
}

func (f *fakeAccountRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.accounts[id]; !ok {
		return repo.ErrNotMatched
	}
	delete(f.accounts, id)
	return nil
}

type fakeOrderRepo struct {
	orders map[string][]entity.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[string][]entity.Order{}}
}

func (f *fakeOrderRepo) Create(_ context.Context, o *entity.Order) error {
	f.orders[o.AccountID] = append(f.orders[o.AccountID], *o)
	return nil
}

func (f *fakeOrderRepo) ListByAccountID(_ context.Context, accountID string) ([]entity.Order, error) {
	return f.orders[accountID], nil
}

func (f *fakeOrderRepo) DeleteByAccountID(_ context.Context, accountID string) (int64, error) {
	n := int64(len(f.orders[accountID]))
	delete(f.orders, accountID)
	return n, nil
}

type fakeRecordStore struct {
	records   map[string]map[string]any
	revokeErr error
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{records: map[string]map[string]any{}}
}

func (f *fakeRecordStore) Save(_ context.Context, accountID string, fields map[string]any, _ time.Duration) error {
	f.records[accountID] = fields
	return nil
}

func (f *fakeRecordStore) SetField(_ context.Context, accountID, field, value string) error {
	r, ok := f.records[accountID]
	if !ok {
		return nil
	}
	r[field] = value
	return nil
}

func (f *fakeRecordStore) Revoke(_ context.Context, accountID string) error {
	if f.revokeErr != nil {
		return f.revokeErr
	}
	delete(f.records, accountID)
	return nil
}

type fakeMailer struct {
	sent    []string // tokens delivered
	sendErr error
}

func (f *fakeMailer) SendReset(_ context.Context, to, token, resetURL string) (mailer.Delivery, error) {
	if f.sendErr != nil {
		return mailer.Delivery{}, f.sendErr
	}
	f.sent = append(f.sent, token)
	return mailer.Delivery{Response: "Queued. Thank you.", Accepted: []string{to}}, nil
}

func newService(t *testing.T) (*Service, *fakeAccountRepo, *fakeOrderRepo, *fakeMailer) {
	t.Helper()
	accounts := newFakeAccountRepo()
	orders := newFakeOrderRepo()
	mail := &fakeMailer{}
	svc := &Service{
		Accounts: accounts,
		Orders:   orders,
		Hasher:   helpers.NewPasswordHasher(4), // min cost keeps tests fast
		Issuer:   helpers.NewResetTokenIssuer(time.Hour),
		Sessions: helpers.NewSessionManager("test-secret", 48*time.Hour),
		Mailer:   mail,
		ResetURL: "http://localhost/reset-password",
	}
	return svc, accounts, orders, mail
}

func kindOf(t *testing.T, err error) apperr.Kind {
	t.Helper()
	require.Error(t, err)
	return apperr.KindOf(err)
}

// --- registration ---

func TestRegisterGuest_Idempotent(t *testing.T) {
	svc, _, _, _ := newService(t)
	ctx := context.Background()

	first, err := svc.RegisterGuest(ctx, "+1000", "Alice", "1 Main St")
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	assert.False(t, first.HasPassword())

	second, err := svc.RegisterGuest(ctx, "+1000", "Someone Else", "other address")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Alice", second.DisplayName, "existing account must be returned unchanged")
}

func TestRegisterGuest_StoreFailure(t *testing.T) {
	svc, accounts, _, _ := newService(t)
	accounts.failNext = errors.New("connection refused")

	_, err := svc.RegisterGuest(context.Background(), "+1000", "Alice", "")
	assert.Equal(t, apperr.Internal, kindOf(t, err))
}

func TestRegisterFull_DuplicatePhone(t *testing.T) {
	svc, _, _, _ := newService(t)
	ctx := context.Background()

	_, _, err := svc.RegisterFull(ctx, "+1000", "Alice", "abc123")
	require.NoError(t, err)

	_, _, err = svc.RegisterFull(ctx, "+1000", "Imposter", "xyz789")
	assert.Equal(t, apperr.BadRequest, kindOf(t, err))
}

func TestRegisterFull_WithoutPhone(t *testing.T) {
	svc, _, _, _ := newService(t)

	a, sess, err := svc.RegisterFull(context.Background(), "", "Bob", "abc123")
	require.NoError(t, err)
	assert.Nil(t, a.Phone)
	assert.True(t, a.HasPassword())
	require.NotEmpty(t, sess.Token)

	claims, err := svc.Sessions.Parse(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, a.ID, claims.AccountID)
}

// --- login ---

func TestLogin_Scenario(t *testing.T) {
	svc, _, _, _ := newService(t)
	ctx := context.Background()

	a, sess, err := svc.RegisterFull(ctx, "+1000", "Alice", "abc123")
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)

	res, err := svc.Login(ctx, "+1000", "abc123")
	require.NoError(t, err)
	assert.Equal(t, a.ID, res.Account.ID)
	assert.False(t, res.NoPassword)
	assert.NotEmpty(t, res.Session.Token)

	_, err = svc.Login(ctx, "+1000", "wrong")
	assert.Equal(t, apperr.BadRequest, kindOf(t, err))
}

func TestLogin_UnknownPhone(t *testing.T) {
	svc, _, _, _ := newService(t)

	_, err := svc.Login(context.Background(), "+404", "whatever")
	assert.Equal(t, apperr.NotFound, kindOf(t, err))
}

func TestLogin_NoPasswordSet(t *testing.T) {
	svc, _, _, _ := newService(t)
	ctx := context.Background()

	guest, err := svc.RegisterGuest(ctx, "+1000", "Guest", "")
	require.NoError(t, err)

	res, err := svc.Login(ctx, "+1000", "anything")
	require.NoError(t, err, "missing password is not an error")
	assert.True(t, res.NoPassword)
	assert.Equal(t, "no password set yet", res.Message)
	assert.Equal(t, guest.ID, res.Account.ID)
	assert.Empty(t, res.Session.Token)
}

// --- reset flow ---

func registerWithEmail(t *testing.T, svc *Service, accounts *fakeAccountRepo, phone, email, password string) *entity.Account {
	t.Helper()
	a, _, err := svc.RegisterFull(context.Background(), phone, "Resetter", password)
	require.NoError(t, err)
	accounts.accounts[a.ID].Email = &email
	return a
}

func TestRequestReset_UnknownEmail(t *testing.T) {
	svc, _, _, _ := newService(t)

	_, err := svc.RequestReset(context.Background(), "a@b.com")
	assert.Equal(t, apperr.NotFound, kindOf(t, err))
}

func TestRequestReset_StoresTokenAndDelivers(t *testing.T) {
	svc, accounts, _, mail := newService(t)
	ctx := context.Background()

	a := registerWithEmail(t, svc, accounts, "+1000", "a@b.com", "abc123")

	d, err := svc.RequestReset(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"a@b.com"}, d.Accepted)
	require.Len(t, mail.sent, 1)

	stored := accounts.accounts[a.ID]
	require.NotNil(t, stored.ResetToken)
	assert.Equal(t, mail.sent[0], *stored.ResetToken)
	assert.Len(t, *stored.ResetToken, 32)

	require.NotNil(t, stored.ResetExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *stored.ResetExpiresAt, 5*time.Second)
}

func TestRequestReset_TransportFailure(t *testing.T) {
	svc, accounts, _, mail := newService(t)
	registerWithEmail(t, svc, accounts, "+1000", "a@b.com", "abc123")
	mail.sendErr = errors.New("smtp: relay rejected")

	_, err := svc.RequestReset(context.Background(), "a@b.com")
	assert.Equal(t, apperr.InvalidValue, kindOf(t, err))
	assert.Contains(t, err.Error(), "relay rejected")
}

func TestConsumeReset_SingleUse(t *testing.T) {
	svc, accounts, _, mail := newService(t)
	ctx := context.Background()

	a := registerWithEmail(t, svc, accounts, "+1000", "a@b.com", "oldpass")
	_, err := svc.RequestReset(ctx, "a@b.com")
	require.NoError(t, err)
	token := mail.sent[0]

	got, err := svc.ConsumeReset(ctx, token, "newpass")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Nil(t, accounts.accounts[a.ID].ResetToken, "token must be cleared on consumption")
	assert.NotNil(t, accounts.accounts[a.ID].PasswordResetAt)

	// Second consumption with the same token fails
	_, err = svc.ConsumeReset(ctx, token, "anotherpass")
	assert.Equal(t, apperr.Forbidden, kindOf(t, err))

	// And the new password works
	res, err := svc.Login(ctx, "+1000", "newpass")
	require.NoError(t, err)
	assert.False(t, res.NoPassword)
	_, err = svc.Login(ctx, "+1000", "oldpass")
	assert.Equal(t, apperr.BadRequest, kindOf(t, err))
}

func TestConsumeReset_ExpiredEqualsWrong(t *testing.T) {
	svc, accounts, _, mail := newService(t)
	ctx := context.Background()

	a := registerWithEmail(t, svc, accounts, "+1000", "a@b.com", "oldpass")
	_, err := svc.RequestReset(ctx, "a@b.com")
	require.NoError(t, err)
	token := mail.sent[0]

	// Force the stored token into the past
	past := time.Now().Add(-time.Minute)
	accounts.accounts[a.ID].ResetExpiresAt = &past

	_, expiredErr := svc.ConsumeReset(ctx, token, "newpass")
	_, wrongErr := svc.ConsumeReset(ctx, "00000000000000000000000000000000", "newpass")

	// Expired and wrong tokens must be observably identical
	assert.Equal(t, apperr.Forbidden, kindOf(t, expiredErr))
	assert.Equal(t, apperr.Forbidden, kindOf(t, wrongErr))
	assert.Equal(t, expiredErr.Error(), wrongErr.Error())
}

// --- password confirm / update ---

func TestConfirmPassword(t *testing.T) {
	svc, _, _, _ := newService(t)
	ctx := context.Background()

	a, _, err := svc.RegisterFull(ctx, "+1000", "Alice", "abc123")
	require.NoError(t, err)

	require.NoError(t, svc.ConfirmPassword(ctx, a.ID, "abc123"))
	assert.Equal(t, apperr.BadRequest, kindOf(t, svc.ConfirmPassword(ctx, a.ID, "nope")))
	assert.Equal(t, apperr.NotFound, kindOf(t, svc.ConfirmPassword(ctx, "acc-404", "abc123")))
}

func TestUpdatePassword(t *testing.T) {
	svc, _, _, _ := newService(t)
	ctx := context.Background()

	a, _, err := svc.RegisterFull(ctx, "+1000", "Alice", "abc123")
	require.NoError(t, err)

	err = svc.UpdatePassword(ctx, a.ID, "abc123")
	assert.Equal(t, apperr.BadRequest, kindOf(t, err), "same password must be rejected")

	require.NoError(t, svc.UpdatePassword(ctx, a.ID, "brandnew"))

	_, err = svc.Login(ctx, "+1000", "brandnew")
	require.NoError(t, err)
	_, err = svc.Login(ctx, "+1000", "abc123")
	assert.Equal(t, apperr.BadRequest, kindOf(t, err))
}

func TestUpdatePassword_SetsInitialForGuest(t *testing.T) {
	svc, _, _, _ := newService(t)
	ctx := context.Background()

	guest, err := svc.RegisterGuest(ctx, "+1000", "Guest", "")
	require.NoError(t, err)

	require.NoError(t, svc.UpdatePassword(ctx, guest.ID, "firstpass"))

	res, err := svc.Login(ctx, "+1000", "firstpass")
	require.NoError(t, err)
	assert.False(t, res.NoPassword)
}

// --- profile ---

func TestUpdateProfile_FullReplacement(t *testing.T) {
	svc, accounts, _, _ := newService(t)
	ctx := context.Background()

	a := registerWithEmail(t, svc, accounts, "+1000", "a@b.com", "abc123")

	got, err := svc.UpdateProfile(ctx, a.ID, UpdateProfileInput{DisplayName: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.DisplayName)
	assert.Nil(t, got.Email, "absent email must be cleared, not kept")
	assert.Nil(t, got.Address)
}

func TestUpdateProfile_ConcurrentDeletion(t *testing.T) {
	svc, _, _, _ := newService(t)

	_, err := svc.UpdateProfile(context.Background(), "acc-gone", UpdateProfileInput{DisplayName: "x"})
	assert.Equal(t, apperr.Forbidden, kindOf(t, err))
}

// --- logout ---

func TestLogout_RevokesSessionRecord(t *testing.T) {
	svc, _, _, _ := newService(t)
	records := newFakeRecordStore()
	svc.Records = records
	ctx := context.Background()

	a, sess, err := svc.RegisterFull(ctx, "+1000", "Alice", "abc123")
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)
	require.Contains(t, records.records, a.ID, "issuing a session must save a record")

	require.NoError(t, svc.Logout(ctx, a.ID))
	assert.NotContains(t, records.records, a.ID, "logout must revoke the server-side record")

	// The signed token alone is not enough once the record is gone: login
	// again and the record reappears.
	_, err = svc.Login(ctx, "+1000", "abc123")
	require.NoError(t, err)
	assert.Contains(t, records.records, a.ID)
}

func TestLogout_StoreFailure(t *testing.T) {
	svc, _, _, _ := newService(t)
	records := newFakeRecordStore()
	records.revokeErr = errors.New("connection refused")
	svc.Records = records

	err := svc.Logout(context.Background(), "acc-1")
	assert.Equal(t, apperr.Internal, kindOf(t, err))
}

func TestLogout_WithoutRecordStore(t *testing.T) {
	svc, _, _, _ := newService(t)

	require.NoError(t, svc.Logout(context.Background(), "acc-1"))
}

// --- deletion cascade ---

func TestDeleteAccount_Cascade(t *testing.T) {
	svc, _, orders, _ := newService(t)
	records := newFakeRecordStore()
	svc.Records = records
	ctx := context.Background()

	a, _, err := svc.RegisterFull(ctx, "+1000", "Alice", "abc123")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, orders.Create(ctx, &entity.Order{AccountID: a.ID, Items: "item", TotalCents: 100}))
	}

	res, err := svc.DeleteAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.OrdersDeleted)
	assert.True(t, res.AccountDeleted)

	_, err = svc.GetProfile(ctx, a.ID)
	assert.Equal(t, apperr.NotFound, kindOf(t, err))

	left, err := orders.ListByAccountID(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
	assert.NotContains(t, records.records, a.ID, "deletion must revoke the session record")
}

func TestUploadAvatar_StorageNotConfigured(t *testing.T) {
	svc, _, _, _ := newService(t)
	ctx := context.Background()

	a, _, err := svc.RegisterFull(ctx, "+1000", "Alice", "abc123")
	require.NoError(t, err)

	_, err = svc.UploadAvatar(ctx, a.ID, strings.NewReader("png"), "me.png", "image/png")
	assert.Equal(t, apperr.InvalidValue, kindOf(t, err))
}

func TestDeleteAccount_Unknown(t *testing.T) {
	svc, _, _, _ := newService(t)

	_, err := svc.DeleteAccount(context.Background(), "acc-404")
	assert.Equal(t, apperr.NotFound, kindOf(t, err))
}
