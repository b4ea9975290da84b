// Package gate decides whether an article may be shown to a requester.
//
// The checks run in a fixed order and the first failure wins: authentication,
// VIP tier, password presence, password match. A non-VIP requester on an
// article that is both VIP-gated and password-protected is told about the VIP
// requirement only, never that a password also exists.
package gate

import (
	"crypto/subtle"

	"github.com/blog-content-api/internal/models"
)

// Decision is the outcome of evaluating an article for a requester
type Decision string

const (
	Allow                 Decision = "allow"
	DenyLoginRequired     Decision = "login_required"
	DenyVIPRequired       Decision = "vip_required"
	DenyPasswordRequired  Decision = "password_required"
	DenyPasswordIncorrect Decision = "password_incorrect"
)

// Remediation tells the presentation layer which view to offer after a denial
type Remediation string

const (
	RemediationNone     Remediation = ""
	RemediationLogin    Remediation = "login"
	RemediationVIP      Remediation = "vip_purchase"
	RemediationPassword Remediation = "password"
)

// Requester is the identity behind a request. The zero value is anonymous.
type Requester struct {
	UserID string
	IsVIP  bool
}

// Anonymous is a requester without a session
var Anonymous = Requester{}

// RequesterFor builds a requester from a loaded user; nil means anonymous
func RequesterFor(u *models.User) Requester {
	if u == nil {
		return Anonymous
	}
	return Requester{UserID: u.ID, IsVIP: u.IsVIP}
}

// Authenticated reports whether the request carries a session
func (r Requester) Authenticated() bool {
	return r.UserID != ""
}

// Evaluate decides access to article for requester. password is the value
// supplied with the request; an empty string means none was supplied.
func Evaluate(article *models.Article, requester Requester, password string) Decision {
	if !article.IsPrivate {
		return Allow
	}
	if !requester.Authenticated() {
		return DenyLoginRequired
	}
	if article.RequireVIP && !requester.IsVIP {
		return DenyVIPRequired
	}
	if article.Password != "" {
		if password == "" {
			return DenyPasswordRequired
		}
		if subtle.ConstantTimeCompare([]byte(password), []byte(article.Password)) != 1 {
			return DenyPasswordIncorrect
		}
	}
	return Allow
}

// Teaser builds the view of article shown after decision d. Only the gate
// that denied the request is revealed.
func Teaser(article *models.Article, d Decision) *models.ArticleTeaser {
	t := &models.ArticleTeaser{
		ID:         article.ID,
		Title:      article.Title,
		AuthorID:   article.AuthorID,
		AuthorName: article.AuthorName,
		IsPrivate:  article.IsPrivate,
	}
	switch d {
	case DenyVIPRequired:
		t.RequireVIP = true
	case DenyPasswordRequired, DenyPasswordIncorrect:
		t.RequireVIP = article.RequireVIP
		t.HasPassword = true
	}
	return t
}

// Allowed reports whether the decision permits rendering
func (d Decision) Allowed() bool {
	return d == Allow
}

// Remediation maps a denial to the action that would resolve it
func (d Decision) Remediation() Remediation {
	switch d {
	case DenyLoginRequired:
		return RemediationLogin
	case DenyVIPRequired:
		return RemediationVIP
	case DenyPasswordRequired, DenyPasswordIncorrect:
		return RemediationPassword
	}
	return RemediationNone
}

// Err converts a denial into an authorization error, or nil on Allow
func (d Decision) Err() error {
	switch d {
	case Allow:
		return nil
	case DenyLoginRequired:
		return models.ErrLoginRequired
	}
	return &models.Error{Kind: models.KindAuthorization, Code: string(d), Message: d.message()}
}

func (d Decision) message() string {
	switch d {
	case DenyVIPRequired:
		return "this article requires VIP access"
	case DenyPasswordRequired:
		return "this article is password protected"
	case DenyPasswordIncorrect:
		return "incorrect article password"
	}
	return string(d)
}
