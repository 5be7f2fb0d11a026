package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/samirrijal/roadcap/internal/core/routeview"
)

// ViewCreated is the body of a POST /v1/views response.
type ViewCreated struct {
	ID    string          `json:"id"`
	Scene routeview.Scene `json:"scene"`
}

// LegendHandler returns the static legend.
func LegendHandler() fiber.Handler {
	legend := routeview.DefaultLegend()
	return func(c *fiber.Ctx) error {
		return c.JSON(legend)
	}
}

// CreateViewHandler opens a new idle view.
func CreateViewHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, scene := deps.Views.Create()
		c.Location("/v1/views/" + id)
		return c.Status(fiber.StatusCreated).JSON(ViewCreated{ID: id, Scene: scene})
	}
}

// ListViewsHandler returns a page of live views.
func ListViewsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset, limit := pageParams(c, 50, 200)
		page, pg := paginate(deps.Views.List(), offset, limit)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// GetViewHandler returns the current scene of a view.
func GetViewHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scene, err := deps.Views.Scene(c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(scene)
	}
}

// GeoJSONViewHandler returns the scene as a GeoJSON FeatureCollection.
func GeoJSONViewHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scene, err := deps.Views.Scene(c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		data, err := routeview.GeoJSON(scene).MarshalJSON()
		if err != nil {
			return errInternal(c, err.Error())
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		return c.Send(data)
	}
}

// DeleteViewHandler drops a view.
func DeleteViewHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Views.Delete(c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// SubmitRouteHandler resolves a route for the view and rebuilds it.
func SubmitRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RouteRequestDTO
		if err := bindJSON(c, &body); err != nil {
			return errBadRequest(c, err.Error())
		}

		scene, err := deps.Views.SubmitRoute(c.UserContext(), c.Params("id"), body.request())
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(scene)
	}
}

// LoadBookingHandler feeds a booking's reserved segments into the view.
func LoadBookingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Bookings == nil {
			return newError(c, fiber.StatusServiceUnavailable, "unavailable", "booking backend not configured")
		}
		booking := c.Params("booking")
		if booking == "" {
			return errBadRequest(c, "booking id is required")
		}

		scene, err := deps.Bookings.Load(c.UserContext(), c.Params("id"), booking)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(scene)
	}
}

// SelectSegmentHandler opens the popup of one segment.
func SelectSegmentHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		segment, err := strconv.Atoi(c.Params("segment"))
		if err != nil {
			return errBadRequest(c, "segment must be an integer")
		}

		scene, err := deps.Views.SelectSegment(c.Params("id"), segment)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(scene)
	}
}

// SelectAlternativeHandler opens the popup of one alternative route.
func SelectAlternativeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		index, err := strconv.Atoi(c.Params("index"))
		if err != nil {
			return errBadRequest(c, "index must be an integer")
		}

		scene, err := deps.Views.SelectAlternative(c.Params("id"), index)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(scene)
	}
}

// ClickResponse reports whether a click landed on an overlay.
type ClickResponse struct {
	Hit   bool            `json:"hit"`
	Scene routeview.Scene `json:"scene"`
}

// ClickHandler selects the overlay nearest to a clicked coordinate.
func ClickHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body PointDTO
		if err := bindJSON(c, &body); err != nil {
			return errBadRequest(c, err.Error())
		}

		scene, hit, err := deps.Views.Click(c.Params("id"), body.point())
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(ClickResponse{Hit: hit, Scene: scene})
	}
}

// ClosePopupHandler closes the popup of the given kind.
func ClosePopupHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		kind := routeview.SelectionKind(c.Params("kind"))
		if kind != routeview.SelectSegment && kind != routeview.SelectAlternative {
			return errBadRequest(c, "kind must be segment or alternative")
		}

		scene, err := deps.Views.ClosePopup(c.Params("id"), kind)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(scene)
	}
}
