package users

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tenantly/authweb/internal/apiclient"
	"github.com/tenantly/authweb/internal/models"
	"github.com/tenantly/authweb/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// API is the part of the authentication API used for account management.
type API interface {
	UserExists(ctx context.Context, email string) (bool, error)
	TenantExists(ctx context.Context, domain string) (bool, error)
	Register(ctx context.Context, body models.UserRegister) error
	Me(ctx context.Context, editors ...apiclient.RequestEditorFn) (*models.User, error)
	UpdateMe(ctx context.Context, body models.UserUpdate, editors ...apiclient.RequestEditorFn) (*models.User, error)
	ChangePassword(ctx context.Context, body models.PasswordChange, editors ...apiclient.RequestEditorFn) error
	RequestPasswordReset(ctx context.Context, body models.PasswordReset) error
	ResetPassword(ctx context.Context, body models.PasswordResetConfirm) error
}

// Service encapsulates account operations delegated to the API
type Service struct {
	api API
}

func NewService(api API) *Service {
	return &Service{api: api}
}

// Register checks that neither the email nor the tenant domain is taken, then
// creates the account. Conflicts come back together as one *ValidationError.
func (s *Service) Register(ctx context.Context, in models.UserRegister) error {
	var emailTaken, domainTaken bool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		emailTaken, err = s.api.UserExists(gctx, in.Email)
		return err
	})
	g.Go(func() error {
		var err error
		domainTaken, err = s.api.TenantExists(gctx, in.TenantDomain)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("registration pre-check: %w", err)
	}

	var fields []apiclient.FieldError
	if emailTaken {
		fields = append(fields, apiclient.FieldError{Field: "email", Message: "An account with this email already exists."})
	}
	if domainTaken {
		fields = append(fields, apiclient.FieldError{Field: "tenant_domain", Message: "This organization domain is already taken."})
	}
	if len(fields) > 0 {
		return apiclient.NewValidationError(fields...)
	}

	if err := s.api.Register(ctx, in); err != nil {
		return badRequestAs(err, "", "")
	}
	return nil
}

// EmailTaken reports whether an account already uses email.
func (s *Service) EmailTaken(ctx context.Context, email string) (bool, error) {
	return s.api.UserExists(ctx, email)
}

// DomainTaken reports whether a tenant already owns domain.
func (s *Service) DomainTaken(ctx context.Context, domain string) (bool, error) {
	return s.api.TenantExists(ctx, domain)
}

// Profile returns the signed-in user's profile.
func (s *Service) Profile(ctx context.Context, auth apiclient.RequestEditorFn) (*models.User, error) {
	return s.api.Me(ctx, auth)
}

// UpdateProfile changes the display name and returns the updated profile.
func (s *Service) UpdateProfile(ctx context.Context, firstName, lastName string, auth apiclient.RequestEditorFn) (*models.User, error) {
	u, err := s.api.UpdateMe(ctx, models.UserUpdate{FirstName: &firstName, LastName: &lastName}, auth)
	if err != nil {
		return nil, badRequestAs(err, "", "")
	}
	return u, nil
}

// ChangePassword changes the signed-in user's password. A 400 from the API
// means the current password was wrong.
func (s *Service) ChangePassword(ctx context.Context, current, next string, auth apiclient.RequestEditorFn) error {
	err := s.api.ChangePassword(ctx, models.PasswordChange{CurrentPassword: current, NewPassword: next}, auth)
	if err != nil {
		return badRequestAs(err, "current_password", "Current password is incorrect.")
	}
	return nil
}

// RequestPasswordReset asks the API to mail a reset link. Only network
// failures are reported so the page never reveals whether an account exists.
func (s *Service) RequestPasswordReset(ctx context.Context, email, tenantDomain string) error {
	err := s.api.RequestPasswordReset(ctx, models.PasswordReset{Email: email, TenantDomain: tenantDomain})
	if err == nil {
		return nil
	}
	if errors.Is(err, apiclient.ErrNetwork) {
		return err
	}
	logger.Debugf("password reset request for tenant %q not accepted: %v", tenantDomain, err)
	return nil
}

// ResetPassword sets a new password using a mailed token.
func (s *Service) ResetPassword(ctx context.Context, token, next string) error {
	err := s.api.ResetPassword(ctx, models.PasswordResetConfirm{Token: token, NewPassword: next})
	if err != nil {
		return badRequestAs(err, "token", "This reset link is invalid or has expired.")
	}
	return nil
}

// badRequestAs turns a 400 into a *ValidationError: on field when given,
// otherwise as a form-level message. Other errors pass through.
func badRequestAs(err error, field, fallback string) error {
	var se *apiclient.StatusError
	if !errors.As(err, &se) || se.Status != http.StatusBadRequest {
		return err
	}
	msg := se.Detail
	if msg == "" {
		msg = fallback
	}
	if msg == "" {
		msg = "The request was rejected."
	}
	ve := &apiclient.ValidationError{Status: se.Status}
	if field == "" {
		ve.Detail = msg
	} else {
		ve.Fields = []apiclient.FieldError{{Field: field, Message: msg}}
	}
	return ve
}
