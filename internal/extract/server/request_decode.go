package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"

	"github.com/readlens/engine/pkg/types"
)

// errDecode marks a malformed request; the boundary maps it to 400.
var errDecode = errors.New("invalid request")

// decodeRequest assembles an ExtractionRequest from every place a
// parameter may arrive. Sources apply weakest first: request body
// (JSON or form fields, mutually exclusive by content type), then
// query parameters, then the path-embedded target URL.
func decodeRequest(ctx *fasthttp.RequestCtx, defaultMode string) (*types.ExtractionRequest, error) {
	req := &types.ExtractionRequest{}

	if isJSONBody(ctx) && len(ctx.PostBody()) > 0 {
		if err := json.Unmarshal(ctx.PostBody(), req); err != nil {
			return nil, fmt.Errorf("%w: malformed JSON body: %v", errDecode, err)
		}
	}

	if err := applyArgs(req, ctx.PostArgs()); err != nil {
		return nil, err
	}
	if err := applyArgs(req, ctx.QueryArgs()); err != nil {
		return nil, err
	}

	if target := pathTarget(ctx); target != "" {
		req.URL = target
	}

	return normalizeRequest(req, defaultMode)
}

// pathTarget returns the target embedded after "/extract/", decoded
// from its percent-encoded form. A target carrying its own query
// string must arrive encoded; an unencoded "?" starts the gateway's
// own parameters.
func pathTarget(ctx *fasthttp.RequestCtx) string {
	rest, ok := bytes.CutPrefix(ctx.Request.URI().PathOriginal(), []byte("/extract/"))
	if !ok || len(rest) == 0 {
		return ""
	}
	if decoded, err := url.PathUnescape(string(rest)); err == nil {
		return decoded
	}
	return string(rest)
}

func isJSONBody(ctx *fasthttp.RequestCtx) bool {
	return ctx.IsPost() && bytes.HasPrefix(ctx.Request.Header.ContentType(), []byte("application/json"))
}

// applyArgs overlays parameters present in args onto req. Boolean
// toggles only switch on: a bare "?nocache" counts as true, and a
// toggle set by a weaker source is not reset by its absence here.
func applyArgs(req *types.ExtractionRequest, args *fasthttp.Args) error {
	if v := args.Peek("url"); len(v) > 0 {
		req.URL = string(v)
	}
	if v := args.Peek("format"); len(v) > 0 {
		req.Format = types.Format(v)
	}
	if v := args.Peek("mode"); len(v) > 0 {
		req.Mode = types.Mode(v)
	}
	if v := args.Peek("selector"); len(v) > 0 {
		req.Selector = string(v)
	}
	if v := args.Peek("maxLength"); len(v) > 0 {
		n, err := strconv.Atoi(string(v))
		if err != nil || n < 0 {
			return fmt.Errorf("%w: maxLength must be a non-negative integer", errDecode)
		}
		req.MaxLength = n
	}

	if argBool(args, "includeHtml") {
		req.IncludeHTML = true
	}
	if argBool(args, "keywords") {
		req.Keywords = true
	}
	if argBool(args, "summary") {
		req.Summary = true
	}
	if argBool(args, "nocache") {
		req.NoCache = true
	}
	return nil
}

func argBool(args *fasthttp.Args, key string) bool {
	if !args.Has(key) {
		return false
	}
	switch strings.ToLower(string(args.Peek(key))) {
	case "", "1", "true", "yes", "on":
		return true
	}
	return false
}

// normalizeRequest validates the merged request and resolves the
// effective mode: an explicit mode wins, a bare selector implies
// selector mode, and otherwise the configured default applies.
func normalizeRequest(req *types.ExtractionRequest, defaultMode string) (*types.ExtractionRequest, error) {
	if strings.TrimSpace(req.URL) == "" {
		return nil, fmt.Errorf("%w: missing target URL", errDecode)
	}

	format, err := types.ParseFormat(string(req.Format))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errDecode, err)
	}
	req.Format = format

	switch {
	case req.Mode != "":
		mode, err := types.ParseMode(string(req.Mode))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errDecode, err)
		}
		req.Mode = mode
	case strings.TrimSpace(req.Selector) != "":
		req.Mode = types.ModeSelector
	default:
		req.Mode = types.Mode(defaultMode)
	}

	if req.Mode == types.ModeSelector && strings.TrimSpace(req.Selector) == "" {
		return nil, fmt.Errorf("%w: mode %q requires a selector", errDecode, types.ModeSelector)
	}

	if req.MaxLength < 0 {
		return nil, fmt.Errorf("%w: maxLength must be a non-negative integer", errDecode)
	}

	return req, nil
}
