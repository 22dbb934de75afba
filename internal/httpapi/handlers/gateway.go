// Package handlers adapts the RPC service implementations to JSON over
// plain HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"google.golang.org/grpc/codes"

	"github.com/timgst1/policyd/internal/observability"
	"github.com/timgst1/policyd/internal/policy"
	"github.com/timgst1/policyd/internal/rpc"
)

const maxBodyBytes = 1 << 20

// Binder copies path and query parameters into a request message after the
// body has been decoded.
type Binder[Req any] func(r *http.Request, req *Req) error

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Handle serves one RPC method over HTTP. method is the gRPC full method
// name; it labels the request metrics the same way the gRPC interceptors do.
func Handle[Req, Resp any](log *slog.Logger, method string, call func(context.Context, *Req) (*Resp, error), binders ...Binder[Req]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		code := codes.OK
		defer func() {
			observability.RPCRequests.WithLabelValues(method, code.String()).Inc()
			observability.RPCDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
		}()

		req := new(Req)
		if err := decodeBody(r, req); err != nil {
			code = codes.InvalidArgument
			WriteError(w, log, method, err)
			return
		}
		for _, bind := range binders {
			if err := bind(r, req); err != nil {
				code = codes.InvalidArgument
				WriteError(w, log, method, err)
				return
			}
		}

		resp, err := call(r.Context(), req)
		if err != nil {
			code = rpc.StatusFromError(err).Code()
			WriteError(w, log, method, err)
			return
		}
		status := http.StatusOK
		if r.Method == http.MethodPost && isCreate(method) {
			status = http.StatusCreated
		}
		WriteJSON(w, status, resp)
	}
}

func decodeBody(r *http.Request, dst any) error {
	if r.Method == http.MethodGet || r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	// entity claims keep their exact digits
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: request body: %v", policy.ErrInvalid, err)
	}
	return nil
}

func isCreate(method string) bool {
	return strings.HasPrefix(path.Base(method), "Create")
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err like the gRPC interceptors do and logs internal
// failures with their original message.
func WriteError(w http.ResponseWriter, log *slog.Logger, method string, err error) {
	st := rpc.StatusFromError(err)
	if st.Code() == codes.Internal {
		log.Error("request failed", "method", method, "err", err)
	}
	WriteJSON(w, rpc.HTTPStatusFromCode(st.Code()), errorBody{Code: st.Code().String(), Message: st.Message()})
}

// Page reads limit and offset query parameters.
func Page(r *http.Request) (policy.PageRequest, error) {
	var p policy.PageRequest
	q := r.URL.Query()
	for name, dst := range map[string]*int32{"limit": &p.Limit, "offset": &p.Offset} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return p, fmt.Errorf("%w: query parameter %s must be an integer", policy.ErrInvalid, name)
		}
		*dst = int32(n)
	}
	return p, nil
}

// State reads the state query parameter (active, inactive or any).
func State(r *http.Request) (policy.ActiveState, error) {
	var s policy.ActiveState
	if raw := r.URL.Query().Get("state"); raw != "" {
		if err := s.UnmarshalText([]byte(raw)); err != nil {
			return s, err
		}
	}
	return s, nil
}

// Path binds the chi URL parameter name through set.
func Path[Req any](name string, set func(req *Req, v string)) Binder[Req] {
	return func(r *http.Request, req *Req) error {
		set(req, chi.URLParam(r, name))
		return nil
	}
}

// Listing binds state, limit and offset query parameters.
func Listing[Req any](set func(req *Req, state policy.ActiveState, page policy.PageRequest)) Binder[Req] {
	return func(r *http.Request, req *Req) error {
		state, err := State(r)
		if err != nil {
			return err
		}
		page, err := Page(r)
		if err != nil {
			return err
		}
		set(req, state, page)
		return nil
	}
}
