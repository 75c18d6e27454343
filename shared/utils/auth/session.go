package auth

import (
	"net/http"
	"sync"

	"github.com/gorilla/sessions"

	"railzway-console/shared/config"
)

const (
	SessionName    = "railzway_console_session"
	UserIDKey      = "user_id"
	LoggedInCookie = "railzway_is_logged_in"
)

var (
	store     *sessions.CookieStore
	storeOnce sync.Once
)

// GetStore returns the shared cookie session store
func GetStore() *sessions.CookieStore {
	storeOnce.Do(func() {
		cfg := config.GetConfig()
		store = sessions.NewCookieStore([]byte(cfg.SessionSecret))
		store.Options = &sessions.Options{
			Path:     "/",
			MaxAge:   86400 * 7, // 7 days
			HttpOnly: true,
			Secure:   cfg.AuthCookieSecure,
		}
	})
	return store
}

// CreateSession writes the user id into the session cookie. A second,
// non-HttpOnly flag cookie is set so the marketing site can show login state;
// it carries no sensitive data.
func CreateSession(w http.ResponseWriter, r *http.Request, userID int64) error {
	session, _ := GetStore().Get(r, SessionName)
	session.Values[UserIDKey] = userID

	http.SetCookie(w, &http.Cookie{
		Name:     LoggedInCookie,
		Value:    "true",
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: false,
		Secure:   config.GetConfig().AuthCookieSecure,
	})

	return session.Save(r, w)
}

// ClearSession expires the session and the login flag cookie
func ClearSession(w http.ResponseWriter, r *http.Request) error {
	session, _ := GetStore().Get(r, SessionName)
	session.Options.MaxAge = -1
	delete(session.Values, UserIDKey)

	http.SetCookie(w, &http.Cookie{
		Name:     LoggedInCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: false,
		Secure:   config.GetConfig().AuthCookieSecure,
	})

	return session.Save(r, w)
}

// UserIDFromRequest extracts the authenticated user id from the session cookie
func UserIDFromRequest(r *http.Request) (int64, bool) {
	session, err := GetStore().Get(r, SessionName)
	if err != nil {
		return 0, false
	}

	rawID, ok := session.Values[UserIDKey]
	if !ok || rawID == nil {
		return 0, false
	}

	var userID int64
	switch value := rawID.(type) {
	case int64:
		userID = value
	case int:
		userID = int64(value)
	case float64:
		userID = int64(value)
	default:
		return 0, false
	}

	if userID == 0 {
		return 0, false
	}
	return userID, true
}
