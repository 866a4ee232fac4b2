package classifier

import (
	"encoding/json"
	"errors"
	"net/http"

	"scontrini/internal/core"
	"scontrini/internal/log"
)

const landingPage = `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width,initial-scale=1" />
    <title>Classification API</title>
    <style>
      body { font-family: system-ui, sans-serif; margin: 2rem; line-height: 1.4; }
      code { background: #f2f2f2; padding: 0.2rem 0.4rem; border-radius: 4px; }
    </style>
  </head>
  <body>
    <h1>Classification API</h1>
    <p>Service is running.</p>
    <ul>
      <li><code>GET /health</code></li>
      <li><code>POST /classify</code></li>
    </ul>
  </body>
</html>
`

// Server exposes the classifier over HTTP.
type Server struct {
	http.Server
	service *Service
	logger  *log.Logger
}

type classifyRequest struct {
	Text   string   `json:"text"`
	Labels []string `json:"labels,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewServer(addr string, service *Service, logger *log.Logger) *Server {
	mux := http.NewServeMux()
	s := &Server{
		Server:  http.Server{Addr: addr, Handler: mux},
		service: service,
		logger:  logger.WithComponent("classifier-http"),
	}
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/classify", s.handleClassify)
	return s
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(landingPage))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleClassify maps input problems to 400 and model problems to 502.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	result, err := s.service.Classify(r.Context(), req.Text, req.Labels)
	if err != nil {
		if core.KindOf(err) == core.FailureInput || errors.Is(err, ErrEmptyInput) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		s.logger.ErrorContext(r.Context(), "Classification failed", "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "classification failed"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
