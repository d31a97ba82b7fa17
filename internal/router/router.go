// Package router builds gorilla/mux routes from controller declarations and
// turns handler results and errors into HTTP responses.
package router

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/egfanboy/mediapire-common/exceptions"
	"github.com/egfanboy/mediapire-gateway/pkg/types"
	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type DataType int

const (
	// DataTypeJSON encodes the handler result as JSON.
	DataTypeJSON DataType = iota
	// DataTypeHTML writes the handler result ([]byte or string) as an HTML document.
	DataTypeHTML
	// DataTypeRedirect redirects to the location returned by the handler.
	DataTypeRedirect
	// DataTypeStream lets the handler write the response itself through RouteParams.Writer.
	DataTypeStream
)

var ErrMissingParameter = errors.New("missing required parameter")

type QueryParam struct {
	Name     string
	Required bool
	// Decode replaces url.QueryUnescape for this parameter.
	Decode func(string) (string, error)
}

type RouteParams struct {
	Params map[string]string
	// Writer is only set for DataTypeStream routes.
	Writer http.ResponseWriter
}

type RouteHandler func(request *http.Request, p RouteParams) (interface{}, error)

type Controller interface {
	GetApis() []RouteBuilder
}

type RouteBuilder interface {
	SetMethod(methods ...string) RouteBuilder
	SetPath(path string) RouteBuilder
	SetReturnCode(code int) RouteBuilder
	SetDataType(dataType DataType) RouteBuilder
	AddQueryParam(param QueryParam) RouteBuilder
	SetHandler(handler RouteHandler) RouteBuilder
	Build(r *mux.Router)
}

type routeBuilder struct {
	methods     []string
	path        string
	returnCode  int
	dataType    DataType
	queryParams []QueryParam
	handler     RouteHandler
}

func NewRouteBuilder() RouteBuilder {
	return &routeBuilder{returnCode: http.StatusOK, dataType: DataTypeJSON}
}

func (b *routeBuilder) SetMethod(methods ...string) RouteBuilder {
	b.methods = methods
	return b
}

func (b *routeBuilder) SetPath(path string) RouteBuilder {
	b.path = path
	return b
}

func (b *routeBuilder) SetReturnCode(code int) RouteBuilder {
	b.returnCode = code
	return b
}

func (b *routeBuilder) SetDataType(dataType DataType) RouteBuilder {
	b.dataType = dataType
	return b
}

func (b *routeBuilder) AddQueryParam(param QueryParam) RouteBuilder {
	b.queryParams = append(b.queryParams, param)
	return b
}

func (b *routeBuilder) SetHandler(handler RouteHandler) RouteBuilder {
	b.handler = handler
	return b
}

func (b *routeBuilder) Build(r *mux.Router) {
	route := r.HandleFunc(b.path, b.serve)
	if len(b.methods) > 0 {
		route.Methods(b.methods...)
	}
}

func (b *routeBuilder) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Set("Allow", strings.Join(b.methods, ", "))
		w.WriteHeader(http.StatusNoContent)
		return
	}

	params, err := b.parseParams(r.URL.RawQuery)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	if b.dataType == DataTypeStream {
		b.serveStream(w, r, params)
		return
	}

	result, err := b.handler(r, params)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	switch b.dataType {
	case DataTypeHTML:
		writeHTML(w, r, b.returnCode, result)
	case DataTypeRedirect:
		location, _ := result.(string)
		http.Redirect(w, r, location, b.returnCode)
	default:
		WriteJSON(w, r, b.returnCode, result)
	}
}

func (b *routeBuilder) serveStream(w http.ResponseWriter, r *http.Request, params RouteParams) {
	tw := &trackingWriter{ResponseWriter: w}
	params.Writer = tw

	_, err := b.handler(r, params)
	if err == nil {
		return
	}

	if !tw.committed {
		WriteError(w, r, err)
		return
	}

	// status already sent, the body simply ends here
	zerolog.Ctx(r.Context()).Warn().Err(err).Msg("stream ended early")
}

// parseParams reads declared query parameters from the raw query so each one
// can be decoded with its own decoder. Malformed values count as absent.
func (b *routeBuilder) parseParams(rawQuery string) (RouteParams, error) {
	p := RouteParams{Params: map[string]string{}}

	for _, qp := range b.queryParams {
		decode := qp.Decode
		if decode == nil {
			decode = url.QueryUnescape
		}

		if v, ok := lookupQuery(rawQuery, qp.Name, decode); ok {
			p.Params[qp.Name] = v
			continue
		}

		if qp.Required {
			return p, &exceptions.ApiException{
				Err:        fmt.Errorf("%s required: %w", qp.Name, ErrMissingParameter),
				StatusCode: http.StatusBadRequest,
			}
		}
	}

	return p, nil
}

func lookupQuery(rawQuery, name string, decode func(string) (string, error)) (string, bool) {
	for _, pair := range strings.Split(rawQuery, "&") {
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil || key != name {
			continue
		}

		v, err := decode(rawValue)
		if err != nil || v == "" {
			return "", false
		}

		return v, true
	}

	return "", false
}

func WriteJSON(w http.ResponseWriter, r *http.Request, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}

// WriteError answers with {"error": msg}. ApiExceptions carry their own status; anything else is a 500.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := http.StatusText(status)

	var apiErr *exceptions.ApiException
	if errors.As(err, &apiErr) {
		status = apiErr.StatusCode
		if apiErr.Err != nil {
			msg = apiErr.Err.Error()
		}
	}

	logger := zerolog.Ctx(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Msg("request failed")
	} else {
		logger.Info().Err(err).Int("status", status).Msg("request rejected")
	}

	WriteJSON(w, r, status, types.ErrorResponse{Error: msg})
}

func writeHTML(w http.ResponseWriter, r *http.Request, code int, result interface{}) {
	var body []byte
	switch v := result.(type) {
	case []byte:
		body = v
	case string:
		body = []byte(v)
	default:
		WriteError(w, r, fmt.Errorf("unsupported html result %T", result))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

// trackingWriter remembers whether the status line has gone out.
type trackingWriter struct {
	http.ResponseWriter
	committed bool
}

func (t *trackingWriter) WriteHeader(code int) {
	t.committed = true
	t.ResponseWriter.WriteHeader(code)
}

func (t *trackingWriter) Write(b []byte) (int, error) {
	t.committed = true
	return t.ResponseWriter.Write(b)
}

func (t *trackingWriter) Unwrap() http.ResponseWriter {
	return t.ResponseWriter
}

func (t *trackingWriter) Flush() {
	if f, ok := t.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
