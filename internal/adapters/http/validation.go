package http

import (
	"errors"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/gofiber/fiber/v2"
	"github.com/samirrijal/roadcap/internal/core/domain"
	"github.com/samirrijal/roadcap/internal/core/usecases"
)

var (
	validate *validator.Validate
	trans    ut.Translator
)

func init() {
	validate = validator.New()
	english := en.New()
	trans, _ = ut.New(english, english).GetTranslator("en")
	_ = enTranslations.RegisterDefaultTranslations(validate, trans)
}

// PointDTO is a WGS84 coordinate in a request body.
type PointDTO struct {
	Lat *float64 `json:"lat" validate:"required,latitude"`
	Lon *float64 `json:"lon" validate:"required,longitude"`
}

func (p PointDTO) point() domain.GeoPoint {
	return domain.GeoPoint{Lat: *p.Lat, Lon: *p.Lon}
}

// RouteRequestDTO is the body of PUT /v1/views/:id/route.
type RouteRequestDTO struct {
	Origin       PointDTO   `json:"origin"`
	Destination  PointDTO   `json:"destination"`
	Path         []PointDTO `json:"path,omitempty" validate:"omitempty,min=2,max=20000,dive"`
	StartAddress string     `json:"start_address,omitempty" validate:"max=300"`
	EndAddress   string     `json:"end_address,omitempty" validate:"max=300"`
}

func (r RouteRequestDTO) request() usecases.RouteRequest {
	req := usecases.RouteRequest{
		Origin:       r.Origin.point(),
		Destination:  r.Destination.point(),
		StartAddress: r.StartAddress,
		EndAddress:   r.EndAddress,
	}
	if len(r.Path) > 0 {
		req.Path = make([]domain.GeoPoint, len(r.Path))
		for i, p := range r.Path {
			req.Path[i] = p.point()
		}
	}
	return req
}

// bindJSON parses and validates a request body into out.
func bindJSON(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return errors.New("invalid JSON body")
	}
	if err := validate.Struct(out); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, e.Translate(trans))
	}
	return errors.New(strings.Join(msgs, "; "))
}
