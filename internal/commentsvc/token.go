package commentsvc

import (
	"net/http"
	"net/url"
)

// CSRFCookie is the cookie the site stores its forgery-protection token in.
const CSRFCookie = "csrftoken"

// TokenProvider supplies the forgery-protection token attached to every call.
type TokenProvider interface {
	Token() string
}

// StaticToken is a fixed token.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// CookieToken reads the CSRF cookie the site set in a cookie jar.
type CookieToken struct {
	Jar  http.CookieJar
	Site *url.URL
}

func (c CookieToken) Token() string {
	if c.Jar == nil || c.Site == nil {
		return ""
	}
	for _, ck := range c.Jar.Cookies(c.Site) {
		if ck.Name == CSRFCookie {
			if v, err := url.QueryUnescape(ck.Value); err == nil {
				return v
			}
			return ck.Value
		}
	}
	return ""
}
