package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okamyuji/skin-tone-analyzer/internal/analyzer"
	"github.com/okamyuji/skin-tone-analyzer/internal/errors"
	"github.com/okamyuji/skin-tone-analyzer/internal/middleware"
	"github.com/okamyuji/skin-tone-analyzer/internal/palette"
	"github.com/okamyuji/skin-tone-analyzer/internal/response"
	"github.com/okamyuji/skin-tone-analyzer/internal/tone"
)

// 区分方式
const (
	SchemeLegacy   = "legacy"
	SchemeExtended = "extended"
)

// パレット検索のレスポンス
type PaletteResponse struct {
	Scheme          string                   `json:"scheme"`
	Depth           string                   `json:"depth"`
	Undertone       string                   `json:"undertone"`
	Category        string                   `json:"category"`
	SkinColor       string                   `json:"skinColor"`
	Recommendations analyzer.Recommendations `json:"recommendations"`
}

// パレット検索のハンドラ
type PaletteHandler struct {
	palettes *palette.Table
}

func NewPaletteHandler(t *palette.Table) *PaletteHandler {
	return &PaletteHandler{palettes: t}
}

// GET /api/v1/palettes/{depth}/{undertone}?scheme=legacy|extended
func (h *PaletteHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.RequestIDFromContext(r.Context())

	scheme := r.URL.Query().Get("scheme")
	if scheme == "" {
		scheme = SchemeLegacy
	}

	resp, err := Lookup(h.palettes, scheme, chi.URLParam(r, "depth"), chi.URLParam(r, "undertone"))
	if err != nil {
		response.Error(w, err, requestID)
		return
	}
	response.JSON(w, http.StatusOK, resp)
}

// 区分名からパレットを引く
// 未知の区分名はNOT_FOUND、未知の方式はINVALID_INPUT
func Lookup(t *palette.Table, scheme, depth, undertone string) (PaletteResponse, error) {
	notFound := func(err error) error {
		return errors.InvalidInput(fmt.Sprintf(errors.MsgNotFound, err.Error()), err).
			WithCode(errors.ErrCodeNotFound)
	}

	var (
		p        palette.Palette
		fallback bool
		d, u     string
	)

	switch scheme {
	case SchemeLegacy:
		ld, err := tone.ParseDepth(depth)
		if err != nil {
			return PaletteResponse{}, notFound(err)
		}
		lu, err := tone.ParseUndertone(undertone)
		if err != nil {
			return PaletteResponse{}, notFound(err)
		}
		p, fallback = t.Resolve(ld, lu)
		d, u = string(ld), string(lu)
	case SchemeExtended:
		ed, err := tone.ParseExtendedDepth(depth)
		if err != nil {
			return PaletteResponse{}, notFound(err)
		}
		eu, err := tone.ParseExtendedUndertone(undertone)
		if err != nil {
			return PaletteResponse{}, notFound(err)
		}
		p, fallback = t.ResolveExtended(ed, eu)
		d, u = string(ed), string(eu)
	default:
		return PaletteResponse{}, errors.InvalidInput(
			fmt.Sprintf(errors.MsgInvalidInput, "schemeはlegacyかextendedを指定してください"), nil)
	}

	return PaletteResponse{
		Scheme:          scheme,
		Depth:           d,
		Undertone:       u,
		Category:        d + "-" + u,
		SkinColor:       p.Skin,
		Recommendations: analyzer.NewRecommendations(t, p, d, u, fallback),
	}, nil
}
