package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/Sccrap/pe-triage/internal/analyze"
	"github.com/Sccrap/pe-triage/internal/pe"
	"github.com/Sccrap/pe-triage/internal/report"
)

const defaultWebAddr = ":8080"

// maxUpload leaves room for the multipart framing around a MaxFileSize sample.
const maxUpload = pe.MaxFileSize + 1<<20

type WebServer struct {
	server *http.Server
	opts   []analyze.Option
}

type AnalysisResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

const indexPage = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>PE Triage</title>
    <style>
        body { font-family: monospace; margin: 2em; background: #1e1e1e; color: #ddd; }
        pre { background: #111; padding: 1em; white-space: pre-wrap; }
        .error { color: #f66; }
    </style>
</head>
<body>
    <h1>PE Triage</h1>
    <input type="file" id="fileInput" accept=".exe,.dll,.sys">
    <button onclick="runAnalysis()">Analyze</button>
    <pre id="output"></pre>
    <script>
        async function runAnalysis() {
            const file = document.getElementById('fileInput').files[0];
            const out = document.getElementById('output');
            if (!file) {
                alert('Please select a file first');
                return;
            }
            const formData = new FormData();
            formData.append('file', file);
            out.className = '';
            out.textContent = 'Analyzing ' + file.name + '...';
            try {
                const response = await fetch('/api/analyze', { method: 'POST', body: formData });
                const result = await response.json();
                if (result.success) {
                    out.textContent = JSON.stringify(result.data, null, 2);
                } else {
                    out.className = 'error';
                    out.textContent = result.error;
                }
            } catch (error) {
                out.className = 'error';
                out.textContent = error.message;
            }
        }
    </script>
</body>
</html>`

func NewWebServer(addr string, opts ...analyze.Option) *WebServer {
	if addr == "" {
		addr = defaultWebAddr
	}
	ws := &WebServer{opts: opts}
	ws.server = &http.Server{
		Addr:              addr,
		Handler:           ws.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return ws
}

// Handler routes the upload page, the analysis API and the health check.
func (ws *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", serveIndex)
	mux.HandleFunc("/api/analyze", ws.handleAnalyze)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, "ok")
	})
	return mux
}

func serveIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, indexPage)
}

func writeResponse(w http.ResponseWriter, status int, resp AnalysisResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("web: write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeResponse(w, status, AnalysisResponse{Success: false, Error: msg})
}

func (ws *WebServer) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Only POST requests allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read upload: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read file: "+err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, pe.MaxFileSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read file: "+err.Error())
		return
	}
	if len(data) > pe.MaxFileSize {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File exceeds %d bytes", pe.MaxFileSize))
		return
	}

	opts := append([]analyze.Option{analyze.WithContext(r.Context())}, ws.opts...)
	rep, err := analyze.Bytes(header.Filename, data, opts...)
	if err != nil {
		status := http.StatusInternalServerError
		if isParseError(err) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := report.WriteJSON(&buf, rep); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode report: "+err.Error())
		return
	}
	writeResponse(w, http.StatusOK, AnalysisResponse{Success: true, Data: buf.Bytes()})
}

func isParseError(err error) bool {
	for _, target := range []error{
		pe.ErrFileSize, pe.ErrDOSSignature, pe.ErrHeaderOffset, pe.ErrNTSignature,
		pe.ErrOptionalHeaderSize, pe.ErrOptionalMagic, pe.ErrTruncated,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (ws *WebServer) Start() error {
	log.Printf("web: listening on %s", ws.server.Addr)
	return ws.server.ListenAndServe()
}

func (ws *WebServer) Close() error {
	return ws.server.Close()
}

func RunWebUI(addr string, opts ...analyze.Option) error {
	ws := NewWebServer(addr, opts...)
	return ws.Start()
}
