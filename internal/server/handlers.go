package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/taxtree/pkg/errors"
	pkgio "github.com/matzehuels/taxtree/pkg/io"
	"github.com/matzehuels/taxtree/pkg/pipeline"
	"github.com/matzehuels/taxtree/pkg/tree"
)

// errorBody is the JSON form of an error response.
type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// statusOf maps an error code to an HTTP status.
func statusOf(err error) int {
	switch code := errors.GetCode(err); {
	case code == errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.IsInvalid(err):
		return http.StatusBadRequest
	case code == errors.ErrCodeUnsupported:
		return http.StatusMethodNotAllowed
	case code == errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case code == errors.ErrCodeNotPopulated:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, statusOf(err), errorBody{
		Code:      string(code),
		Message:   errors.UserMessage(err),
		RequestID: RequestIDFromContext(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", pipeline.ContentTypes[pipeline.FormatJSON])
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func errNoRoute(r *http.Request) error {
	return errors.New(errors.ErrCodeNotFound, "no route for %s", r.URL.Path)
}

func errMethod(r *http.Request) error {
	return errors.New(errors.ErrCodeUnsupported, "method %s not allowed on %s", r.Method, r.URL.Path)
}

// boolParam parses the query parameter name; absent means false.
func boolParam(r *http.Request, name string) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.New(errors.ErrCodeInvalidInput, "query parameter %s: %q is not a boolean", name, v)
	}
	return b, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTaxon(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.runner.Nodes(r.Context(), []string{chi.URLParam(r, "term")})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nodes[0])
}

func (s *Server) handleLineage(w http.ResponseWriter, r *http.Request) {
	ranks, err := boolParam(r, "ranks")
	if err != nil {
		writeError(w, r, err)
		return
	}
	lineages, err := s.runner.LineagesOf(r.Context(), []string{chi.URLParam(r, "term")}, ranks)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lineages[0])
}

func (s *Server) handleLCA(w http.ResponseWriter, r *http.Request) {
	results, err := s.runner.LCAPairs(r.Context(), r.URL.Query()["term"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	opts, internal, err := renderParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.runner.Tree(r.Context(), r.URL.Query()["term"], pipeline.TreeOptions{Internal: internal})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.writeTree(w, r, t, opts)
}

func (s *Server) handleSubtree(w http.ResponseWriter, r *http.Request) {
	opts, internal, err := renderParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	species, err := boolParam(r, "species")
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.runner.Subtree(r.Context(), chi.URLParam(r, "term"), pipeline.SubtreeOptions{
		Species:  species,
		Internal: internal,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.writeTree(w, r, t, opts)
}

// renderParams reads output (default json), newick, format (the display
// template) and internal.
func renderParams(r *http.Request) (pipeline.RenderOptions, bool, error) {
	q := r.URL.Query()
	opts := pipeline.RenderOptions{
		Format:   q.Get("output"),
		Template: q.Get("format"),
		Emphasis: tree.Plain,
	}
	if opts.Format == "" {
		opts.Format = pipeline.FormatJSON
	}
	newick, err := boolParam(r, "newick")
	if err != nil {
		return opts, false, err
	}
	if newick {
		opts.Format = pipeline.FormatNewick
	}
	if err := pipeline.ValidateFormat(opts.Format); err != nil {
		return opts, false, err
	}
	if err := pipeline.ValidateTemplate(opts.Template); err != nil {
		return opts, false, err
	}
	internal, err := boolParam(r, "internal")
	return opts, internal, err
}

func (s *Server) writeTree(w http.ResponseWriter, r *http.Request, t *tree.Tree, opts pipeline.RenderOptions) {
	if opts.Format == pipeline.FormatJSON {
		doc, err := pkgio.TreeDocument(t)
		if err != nil {
			writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "encode tree"))
			return
		}
		writeJSON(w, http.StatusOK, doc)
		return
	}
	out, err := pipeline.Render(r.Context(), t, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", pipeline.ContentTypes[opts.Format])
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}
