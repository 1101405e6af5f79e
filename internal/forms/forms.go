package forms

import (
	"regexp"
	"strings"
)

// Page forms, bound with gin's ShouldBind and validated with the "binding"
// tags before any call to the API is made. Error keys are the form tags.

// Login is the sign-in form.
type Login struct {
	Email       string `form:"email" label:"Email" binding:"required,email"`
	Password    string `form:"password" label:"Password" binding:"required,min=6,max=20"`
	CallbackURL string `form:"callbackUrl"`
}

// Register is the account plus tenant sign-up form.
type Register struct {
	FirstName       string `form:"first_name" label:"First name" binding:"required,min=2"`
	LastName        string `form:"last_name" label:"Last name" binding:"required,min=2"`
	Email           string `form:"email" label:"Email" binding:"required,email"`
	Password        string `form:"password" label:"Password" binding:"required,min=6,max=20"`
	ConfirmPassword string `form:"confirm_password" label:"Password confirmation" binding:"required,eqfield=Password"`
	TenantName      string `form:"tenant_name" label:"Organization name" binding:"required,min=2"`
	TenantDomain    string `form:"tenant_domain" label:"Organization domain" binding:"required,min=2"`
}

var whitespace = regexp.MustCompile(`\s+`)

// DomainFromName derives a tenant domain: lowercased, whitespace runs replaced by "-".
func DomainFromName(name string) string {
	return whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// Normalize trims input and fills TenantDomain from TenantName when left blank.
// The derived domain is validated like a typed one.
func (f *Register) Normalize() {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Email = strings.TrimSpace(f.Email)
	f.TenantName = strings.TrimSpace(f.TenantName)
	f.TenantDomain = strings.TrimSpace(f.TenantDomain)
	if f.TenantDomain == "" {
		f.TenantDomain = DomainFromName(f.TenantName)
	}
}

// Normalize trims the email.
func (f *Login) Normalize() {
	f.Email = strings.TrimSpace(f.Email)
}

// Profile edits the display name.
type Profile struct {
	FirstName string `form:"first_name" label:"First name" binding:"required"`
	LastName  string `form:"last_name" label:"Last name" binding:"required"`
}

// Normalize trims both names so blank input fails "required".
func (f *Profile) Normalize() {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
}

// ChangePassword is used by a signed-in user.
type ChangePassword struct {
	CurrentPassword string `form:"current_password" label:"Current password" binding:"required"`
	NewPassword     string `form:"new_password" label:"New password" binding:"required,min=8"`
	ConfirmPassword string `form:"confirm_password" label:"Password confirmation" binding:"required,eqfield=NewPassword"`
}

// ForgotPassword requests a reset link.
type ForgotPassword struct {
	Email        string `form:"email" label:"Email" binding:"required,email"`
	TenantDomain string `form:"tenant_domain" label:"Organization domain" binding:"required"`
}

func (f *ForgotPassword) Normalize() {
	f.Email = strings.TrimSpace(f.Email)
	f.TenantDomain = strings.TrimSpace(f.TenantDomain)
}

// ResetPassword completes a reset with the mailed token.
type ResetPassword struct {
	Token           string `form:"token" label:"Reset token" binding:"required"`
	NewPassword     string `form:"new_password" label:"New password" binding:"required,min=8"`
	ConfirmPassword string `form:"confirm_password" label:"Password confirmation" binding:"required,eqfield=NewPassword"`
}
