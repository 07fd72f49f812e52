package handlers

import (
	"html/template"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

// ChallengeHandler renders the 3-D Secure challenge popup page: an
// auto-submitting form that posts the challenge request token to the ACS.
type ChallengeHandler struct {
	logger *zap.Logger
}

// NewChallengeHandler creates a challenge handler
func NewChallengeHandler(logger *zap.Logger) *ChallengeHandler {
	return &ChallengeHandler{logger: logger}
}

// HandleChallenge GET /challenge?acsUrl=...&creq=...
// The UI opens this in a popup after a flow halts with challenge_required.
func (h *ChallengeHandler) HandleChallenge(w http.ResponseWriter, r *http.Request) {
	acsURL := r.URL.Query().Get("acsUrl")
	creq := r.URL.Query().Get("creq")

	if acsURL == "" || creq == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "acsUrl and creq query parameters are required"})
		return
	}

	parsed, err := url.Parse(acsURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "acsUrl must be an absolute http(s) URL"})
		return
	}

	h.logger.Info("Rendering 3DS challenge page",
		zap.String("acs_host", parsed.Host),
	)

	tmpl := template.Must(template.New("challenge").Parse(challengeTemplate))

	data := map[string]interface{}{
		"ACSURL": acsURL,
		"CReq":   creq,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	if err := tmpl.Execute(w, data); err != nil {
		h.logger.Error("Failed to render challenge template",
			zap.Error(err),
		)
	}
}

// HTML template for the 3DS challenge popup
const challengeTemplate = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Card Authentication</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            max-width: 480px;
            margin: 50px auto;
            padding: 20px;
            text-align: center;
            background-color: #f5f5f5;
        }
        .card {
            background: white;
            padding: 40px;
            border-radius: 8px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
        }
        .spinner {
            font-size: 32px;
        }
    </style>
</head>
<body>
    <div class="card">
        <div class="spinner">&#8987;</div>
        <p>Redirecting to your bank for authentication&hellip;</p>
    </div>
    <form id="challenge-form" method="POST" action="{{.ACSURL}}">
        <input type="hidden" name="creq" value="{{.CReq}}">
    </form>
    <script>
        document.getElementById('challenge-form').submit();
    </script>
</body>
</html>
`
