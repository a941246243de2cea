package oauth

import (
	"errors"
	"fmt"
	"html"
	"net/http"

	"promptd/pkg/logging"
)

// Handler serves the OAuth callback endpoint. It delegates validation and
// token exchange to the Flow and renders browser-facing HTML pages.
type Handler struct {
	flow *Flow
}

// NewHandler creates the OAuth callback HTTP handler.
func NewHandler(flow *Flow) *Handler {
	return &Handler{
		flow: flow,
	}
}

// HandleCallback handles the OAuth callback endpoint.
// This is called by the browser after the user authenticates with the IdP.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	result, err := h.flow.HandleCallback(r.Context(), r.URL.Query())
	if err != nil {
		h.renderErrorPage(w, callbackErrorMessage(err))
		return
	}

	h.renderSuccessPage(w, result.ServerName)
}

// callbackErrorMessage maps flow errors to user-facing messages. The
// messages stay generic; details land in the log, not in the browser.
func callbackErrorMessage(err error) string {
	var denied *ProviderDeniedError
	if errors.As(err, &denied) {
		if denied.Description != "" {
			return fmt.Sprintf("Authorization was denied: %s", denied.Description)
		}
		return fmt.Sprintf("Authorization was denied (%s).", denied.Code)
	}

	var missing *MissingParameterError
	if errors.As(err, &missing) {
		return "Invalid callback: missing required parameters."
	}

	var invalid *InvalidSessionError
	if errors.As(err, &invalid) {
		return "Authorization session expired. Please try again."
	}

	var exchange *TokenExchangeError
	if errors.As(err, &exchange) {
		logging.Error("OAuth", exchange, "Token exchange failed on callback")
		return "Failed to complete authorization. Please try again."
	}

	logging.Error("OAuth", err, "OAuth callback failed")
	return "Failed to complete authorization. Please try again."
}

// setSecurityHeaders sets recommended security headers for HTML responses.
// These headers help prevent XSS, clickjacking, and MIME sniffing attacks.
func setSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
}

// renderSuccessPage renders an HTML page indicating successful authorization.
func (h *Handler) renderSuccessPage(w http.ResponseWriter, serverName string) {
	setSecurityHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	// Escape server name to prevent XSS attacks
	safeServerName := html.EscapeString(serverName)

	htmlContent := fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Authorization Successful - promptd</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, sans-serif;
            background: linear-gradient(135deg, #1a1a2e 0%%, #16213e 50%%, #0f3460 100%%);
            min-height: 100vh;
            display: flex;
            align-items: center;
            justify-content: center;
            color: #e8e8e8;
        }
        .container {
            text-align: center;
            padding: 3rem;
            background: rgba(255, 255, 255, 0.05);
            border-radius: 16px;
            border: 1px solid rgba(255, 255, 255, 0.1);
            backdrop-filter: blur(10px);
            max-width: 500px;
            margin: 1rem;
        }
        .checkmark {
            width: 80px;
            height: 80px;
            margin: 0 auto 1.5rem;
            background: linear-gradient(135deg, #00d4aa 0%%, #00a896 100%%);
            border-radius: 50%%;
            display: flex;
            align-items: center;
            justify-content: center;
            font-size: 2.5rem;
        }
        h1 {
            font-size: 1.75rem;
            font-weight: 600;
            margin-bottom: 0.5rem;
            color: #fff;
        }
        .server-name {
            color: #00d4aa;
            font-weight: 500;
        }
        p {
            color: #a0a0a0;
            line-height: 1.6;
            margin-top: 1rem;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="checkmark">✓</div>
        <h1>Authorization Successful</h1>
        <p>promptd is now authorized to use <span class="server-name">%s</span>.</p>
        <p>You can close this window and run your prompt.</p>
    </div>
</body>
</html>`, safeServerName)

	w.Write([]byte(htmlContent))
}

// renderErrorPage renders an HTML page indicating an authorization error.
func (h *Handler) renderErrorPage(w http.ResponseWriter, message string) {
	setSecurityHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)

	// Escape message to prevent XSS attacks
	safeMessage := html.EscapeString(message)

	htmlContent := fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Authorization Failed - promptd</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, sans-serif;
            background: linear-gradient(135deg, #1a1a2e 0%%, #16213e 50%%, #0f3460 100%%);
            min-height: 100vh;
            display: flex;
            align-items: center;
            justify-content: center;
            color: #e8e8e8;
        }
        .container {
            text-align: center;
            padding: 3rem;
            background: rgba(255, 255, 255, 0.05);
            border-radius: 16px;
            border: 1px solid rgba(255, 255, 255, 0.1);
            backdrop-filter: blur(10px);
            max-width: 500px;
            margin: 1rem;
        }
        .error-icon {
            width: 80px;
            height: 80px;
            margin: 0 auto 1.5rem;
            background: linear-gradient(135deg, #ff6b6b 0%%, #ee5a5a 100%%);
            border-radius: 50%%;
            display: flex;
            align-items: center;
            justify-content: center;
            font-size: 2.5rem;
        }
        h1 {
            font-size: 1.75rem;
            font-weight: 600;
            margin-bottom: 0.5rem;
            color: #fff;
        }
        .message {
            color: #ff6b6b;
            font-weight: 500;
            margin-top: 1rem;
        }
        p {
            color: #a0a0a0;
            line-height: 1.6;
            margin-top: 1rem;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="error-icon">✕</div>
        <h1>Authorization Failed</h1>
        <p class="message">%s</p>
        <p>Return to promptd and try again.</p>
    </div>
</body>
</html>`, safeMessage)

	w.Write([]byte(htmlContent))
}

// ServeHTTP implements http.Handler for the OAuth callback handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.HandleCallback(w, r)
}
