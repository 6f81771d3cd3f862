package application

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yogaswara/account-service/internal/domain/entity"
	repo "github.com/yogaswara/account-service/internal/domain/repository"
	"github.com/yogaswara/account-service/pkg/apperr"
	"github.com/yogaswara/account-service/pkg/helpers"
	"github.com/yogaswara/account-service/pkg/mailer"
)

// ResetMailer delivers a reset token and reports the transport outcome.
type ResetMailer interface {
	SendReset(ctx context.Context, to, token, resetURL string) (mailer.Delivery, error)
}

// Publisher enqueues fire-and-forget notification email.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// SessionRecordStore keeps the server-side session record that the auth
// middleware checks for liveness. Revoking the record invalidates every
// token issued for the account, regardless of the token's own expiry.
type SessionRecordStore interface {
	Save(ctx context.Context, accountID string, fields map[string]any, ttl time.Duration) error
	SetField(ctx context.Context, accountID, field, value string) error
	Revoke(ctx context.Context, accountID string) error
}

// Service orchestrates the credential lifecycle: registration, login,
// password set/reset/update, reset-token consumption, profile changes and
// account deletion with its order cascade.
type Service struct {
	Accounts repo.AccountRepository
	Orders   repo.OrderRepository
	Hasher   *helpers.PasswordHasher
	Issuer   *helpers.ResetTokenIssuer
	Sessions *helpers.SessionManager
	Mailer   ResetMailer
	ResetURL string

	Pub       Publisher
	Records   SessionRecordStore
	Logger    *logrus.Logger
	GCS       *storage.Client
	GCSBucket string
	ES        *elasticsearch.Client
	ESIndex   string
}

// Session is an issued session token with its expiry.
type Session struct {
	Token  string
	Expiry time.Time
}

// LoginResult distinguishes a normal login from a phone-only account that has
// no password yet and can still be claimed.
type LoginResult struct {
	Account    *entity.Account
	Session    Session
	NoPassword bool
	Message    string
}

// DeleteResult reports both halves of the non-transactional cascade.
type DeleteResult struct {
	OrdersDeleted  int64
	AccountDeleted bool
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// RegisterGuest creates a phone-only account without credentials. Calling it
// again with the same phone returns the existing account unchanged.
func (s *Service) RegisterGuest(ctx context.Context, phone, displayName, address string) (*entity.Account, error) {
	existing, err := s.Accounts.GetByPhone(ctx, phone)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, apperr.Wrap(apperr.Internal, "account lookup failed", err)
	}

	a := &entity.Account{
		DisplayName: displayName,
		Phone:       &phone,
		Role:        entity.RoleCustomer,
	}
	if address != "" {
		a.Address = &address
	}
	if err := s.Accounts.Create(ctx, a); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "account create failed", err)
	}
	return a, nil
}

// RegisterFull creates an account with a credential hash and issues a session.
func (s *Service) RegisterFull(ctx context.Context, phone, displayName, password string) (*entity.Account, Session, error) {
	if phone != "" {
		if _, err := s.Accounts.GetByPhone(ctx, phone); err == nil {
			return nil, Session{}, apperr.New(apperr.BadRequest, "account already exists, please log in")
		} else if !errors.Is(err, repo.ErrNotFound) {
			return nil, Session{}, apperr.Wrap(apperr.Internal, "account lookup failed", err)
		}
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return nil, Session{}, apperr.Wrap(apperr.Internal, "password hash failed", err)
	}
	a := &entity.Account{
		DisplayName:  displayName,
		Role:         entity.RoleCustomer,
		PasswordHash: &hash,
	}
	if phone != "" {
		a.Phone = &phone
	}
	if err := s.Accounts.Create(ctx, a); err != nil {
		return nil, Session{}, apperr.Wrap(apperr.Internal, "account create failed", err)
	}

	sess, err := s.issueSession(ctx, a)
	if err != nil {
		return nil, Session{}, err
	}
	s.notify(ctx, a, "welcome")
	return a, sess, nil
}

// Login verifies credentials by phone. An account without a credential hash
// yields a NoPassword result instead of an error so it can be claimed later.
func (s *Service) Login(ctx context.Context, phone, password string) (*LoginResult, error) {
	a, err := s.Accounts.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "account not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "account lookup failed", err)
	}

	if !a.HasPassword() {
		return &LoginResult{Account: a, NoPassword: true, Message: "no password set yet"}, nil
	}
	if !s.Hasher.Verify(password, *a.PasswordHash) {
		return nil, apperr.New(apperr.BadRequest, "wrong password")
	}

	sess, err := s.issueSession(ctx, a)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Account: a, Session: sess}, nil
}

// RequestReset issues a reset token, stores it on the account and delivers it
// by mail. Transport failures surface as InvalidValue with the transport's
// message; the stored token remains valid until it expires.
func (s *Service) RequestReset(ctx context.Context, email string) (mailer.Delivery, error) {
	a, err := s.Accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return mailer.Delivery{}, apperr.New(apperr.NotFound, "account not found")
		}
		return mailer.Delivery{}, apperr.Wrap(apperr.Internal, "account lookup failed", err)
	}

	token, expiresAt, err := s.Issuer.Issue()
	if err != nil {
		return mailer.Delivery{}, apperr.Wrap(apperr.Internal, "token generation failed", err)
	}
	if err := s.Accounts.SetResetToken(ctx, a.ID, token, expiresAt); err != nil {
		return mailer.Delivery{}, apperr.Wrap(apperr.Internal, "token store failed", err)
	}

	d, err := s.Mailer.SendReset(ctx, email, token, s.ResetURL)
	if err != nil {
		return mailer.Delivery{}, apperr.Wrap(apperr.InvalidValue, err.Error(), err)
	}
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{"account_id": a.ID}).Info("reset token delivered")
	}
	return d, nil
}

// ConsumeReset redeems a reset token for a new password. A wrong token and an
// expired token are indistinguishable to the caller so the response cannot be
// used as an oracle.
func (s *Service) ConsumeReset(ctx context.Context, token, newPassword string) (*entity.Account, error) {
	hash, err := s.Hasher.Hash(newPassword)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "password hash failed", err)
	}
	a, err := s.Accounts.ConsumeResetToken(ctx, token, time.Now(), hash)
	if err != nil {
		if errors.Is(err, repo.ErrNotMatched) {
			return nil, apperr.New(apperr.Forbidden, "modification not permitted")
		}
		return nil, apperr.Wrap(apperr.Internal, "reset consume failed", err)
	}
	return a, nil
}

// ConfirmPassword is a step-up check used before sensitive operations.
func (s *Service) ConfirmPassword(ctx context.Context, accountID, password string) error {
	a, err := s.Accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.New(apperr.NotFound, "account not found")
		}
		return apperr.Wrap(apperr.Internal, "account lookup failed", err)
	}
	var hash string
	if a.PasswordHash != nil {
		hash = *a.PasswordHash
	}
	if !s.Hasher.Verify(password, hash) {
		return apperr.New(apperr.BadRequest, "wrong password")
	}
	return nil
}

// UpdatePassword commits a new hash. Equality with the current password is
// checked through Verify rather than comparing hashes, since two hashes of the
// same secret never match.
func (s *Service) UpdatePassword(ctx context.Context, accountID, newPassword string) error {
	a, err := s.Accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.New(apperr.NotFound, "account not found")
		}
		return apperr.Wrap(apperr.Internal, "account lookup failed", err)
	}
	if a.HasPassword() && s.Hasher.Verify(newPassword, *a.PasswordHash) {
		return apperr.New(apperr.BadRequest, "new password must differ from the current one")
	}
	hash, err := s.Hasher.Hash(newPassword)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "password hash failed", err)
	}
	if err := s.Accounts.SetPassword(ctx, accountID, hash); err != nil {
		if errors.Is(err, repo.ErrNotMatched) {
			return apperr.New(apperr.NotFound, "account not found")
		}
		return apperr.Wrap(apperr.Internal, "password update failed", err)
	}
	return nil
}

// UpdateProfileInput is a full replacement: nil Email/Address become NULL.
type UpdateProfileInput struct {
	DisplayName string
	Email       *string
	Address     *string
}

// UpdateProfile overwrites the profile fields. A not-matched conditional
// update means the account was deleted concurrently.
func (s *Service) UpdateProfile(ctx context.Context, accountID string, in UpdateProfileInput) (*entity.Account, error) {
	a, err := s.Accounts.UpdateProfile(ctx, accountID, repo.ProfilePatch{
		DisplayName: in.DisplayName,
		Email:       in.Email,
		Address:     in.Address,
	})
	if err != nil {
		if errors.Is(err, repo.ErrNotMatched) {
			return nil, apperr.New(apperr.Forbidden, "modification not permitted")
		}
		return nil, apperr.Wrap(apperr.Internal, "profile update failed", err)
	}

	_ = s.indexAccount(ctx, a)
	s.notify(ctx, a, "profile_updated")
	return a, nil
}

// GetProfile returns the account for the given id.
func (s *Service) GetProfile(ctx context.Context, accountID string) (*entity.Account, error) {
	a, err := s.Accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "account not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "account lookup failed", err)
	}
	return a, nil
}

// ListOrders returns the orders referencing the account.
func (s *Service) ListOrders(ctx context.Context, accountID string) ([]entity.Order, error) {
	orders, err := s.Orders.ListByAccountID(ctx, accountID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "order lookup failed", err)
	}
	return orders, nil
}

// DeleteAccount removes the account's orders and then the account itself.
// The two deletes are not transactional; orders go first, so a failure in
// between leaves an account with no orders rather than orphaned orders.
func (s *Service) DeleteAccount(ctx context.Context, accountID string) (DeleteResult, error) {
	if _, err := s.Accounts.GetByID(ctx, accountID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return DeleteResult{}, apperr.New(apperr.NotFound, "account not found")
		}
		return DeleteResult{}, apperr.Wrap(apperr.Internal, "account lookup failed", err)
	}

	n, err := s.Orders.DeleteByAccountID(ctx, accountID)
	if err != nil {
		return DeleteResult{}, apperr.Wrap(apperr.Internal, "order delete failed", err)
	}
	if err := s.Accounts.Delete(ctx, accountID); err != nil {
		if errors.Is(err, repo.ErrNotMatched) {
			// partial completion is an accepted failure mode
			return DeleteResult{OrdersDeleted: n}, apperr.New(apperr.NotFound, "account not found")
		}
		return DeleteResult{OrdersDeleted: n}, apperr.Wrap(apperr.Internal, "account delete failed", err)
	}

	if s.Records != nil {
		_ = s.Records.Revoke(ctx, accountID)
	}
	s.deleteIndexed(ctx, accountID)
	return DeleteResult{OrdersDeleted: n, AccountDeleted: true}, nil
}

// Logout revokes the server-side session record. Without the record the auth
// middleware rejects tokens that were issued before the logout, even while
// they are still within their signed validity window.
func (s *Service) Logout(ctx context.Context, accountID string) error {
	if s.Records == nil {
		return nil
	}
	if err := s.Records.Revoke(ctx, accountID); err != nil {
		return apperr.Wrap(apperr.Internal, "session revoke failed", err)
	}
	return nil
}

// UploadAvatar stores an avatar in GCS and records its public URL.
func (s *Service) UploadAvatar(ctx context.Context, accountID string, r io.Reader, filename, contentType string) (string, error) {
	a, err := s.Accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", apperr.New(apperr.NotFound, "account not found")
		}
		return "", apperr.Wrap(apperr.Internal, "account lookup failed", err)
	}
	if s.GCS == nil || s.GCSBucket == "" {
		return "", apperr.New(apperr.InvalidValue, "object storage not configured")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("avatars", a.ID, uuid.NewString()+ext))
	url, err := helpers.UploadObject(ctx, s.GCS, s.GCSBucket, objectPath, contentType, r)
	if err != nil {
		return "", apperr.Wrap(apperr.InvalidValue, err.Error(), err)
	}

	if err := s.Accounts.SetAvatar(ctx, a.ID, url); err != nil {
		if errors.Is(err, repo.ErrNotMatched) {
			return "", apperr.New(apperr.Forbidden, "modification not permitted")
		}
		return "", apperr.Wrap(apperr.Internal, "avatar update failed", err)
	}
	a.AvatarURL = url
	_ = s.indexAccount(ctx, a)
	if s.Records != nil {
		_ = s.Records.SetField(ctx, a.ID, "avatar_url", url)
	}
	return url, nil
}

// issueSession signs a session token and records the session in Redis so the
// auth middleware can check liveness.
func (s *Service) issueSession(ctx context.Context, a *entity.Account) (Session, error) {
	token, exp, err := s.Sessions.Generate(a.ID)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("account_id", a.ID).Error("generate session token failed")
		}
		return Session{}, apperr.Wrap(apperr.Internal, "session token failed", err)
	}

	if s.Records != nil {
		fields := map[string]any{
			"account_id":   a.ID,
			"display_name": a.DisplayName,
			"role":         string(a.Role),
			"created_at":   nowRFC3339(),
		}
		if rErr := s.Records.Save(ctx, a.ID, fields, s.Sessions.TTL); rErr != nil && s.Logger != nil {
			s.Logger.WithError(rErr).WithField("account_id", a.ID).Warn("session record save failed")
		}
	}
	return Session{Token: token, Expiry: exp}, nil
}

// notify enqueues a templated notification email when the account has one.
func (s *Service) notify(ctx context.Context, a *entity.Account, template string) {
	if s.Pub == nil || a.Email == nil || *a.Email == "" {
		return
	}
	job := mailer.EmailJob{
		To:       *a.Email,
		Template: template,
		Data:     map[string]any{"Name": a.DisplayName},
	}
	if err := s.Pub.PublishJSON(ctx, job); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("template", template).Warn("notification enqueue failed")
	}
}

func (s *Service) indexAccount(ctx context.Context, a *entity.Account) error {
	if s.ES == nil || s.ESIndex == "" {
		return nil
	}
	doc := map[string]any{
		"id":           a.ID,
		"display_name": a.DisplayName,
		"role":         string(a.Role),
		"avatar_url":   a.AvatarURL,
		"created_at":   a.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":   a.UpdatedAt.Format(time.RFC3339Nano),
	}
	if a.Email != nil {
		doc["email"] = *a.Email
	}
	if a.Phone != nil {
		doc["phone"] = *a.Phone
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESIndex, DocumentID: a.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("account_id", a.ID).Warn("es index failed")
		}
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("account_id", a.ID).Warn("es index response error")
	}
	return nil
}

func (s *Service) deleteIndexed(ctx context.Context, accountID string) {
	if s.ES == nil || s.ESIndex == "" {
		return
	}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	req := esapi.DeleteRequest{Index: s.ESIndex, DocumentID: accountID}
	if res, err := req.Do(c, s.ES); err == nil {
		_ = res.Body.Close()
	}
}

// SearchAccounts performs a multi_match search on display name, email and phone.
func (s *Service) SearchAccounts(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "display_name", "phone"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(s.ES.Search.WithContext(c), s.ES.Search.WithIndex(s.ESIndex), s.ES.Search.WithBody(strings.NewReader(string(b))))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
