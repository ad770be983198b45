package unread

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// CookieStore keeps values in cookies of one request/response pair. Values
// set during the request are visible to later Gets on the same store.
type CookieStore struct {
	w   http.ResponseWriter
	r   *http.Request
	set map[string]string
}

// NewCookieStore binds a store to a request and its response.
func NewCookieStore(w http.ResponseWriter, r *http.Request) *CookieStore {
	return &CookieStore{w: w, r: r, set: make(map[string]string)}
}

// Get reads key from the request cookies.
func (c *CookieStore) Get(_ context.Context, key string) (string, bool, error) {
	if v, ok := c.set[key]; ok {
		return v, true, nil
	}
	cookie, err := c.r.Cookie(key)
	if err != nil {
		return "", false, nil
	}
	v, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		v = cookie.Value
	}
	return v, true, nil
}

// Set writes key as a site-wide cookie on the response.
func (c *CookieStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	cookie := &http.Cookie{
		Name:     key,
		Value:    url.QueryEscape(value),
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	}
	if ttl > 0 {
		cookie.MaxAge = int(ttl / time.Second)
		cookie.Expires = time.Now().Add(ttl).UTC()
	}
	http.SetCookie(c.w, cookie)
	c.set[key] = value
	return nil
}
