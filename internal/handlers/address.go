package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/address"
)

// AddressHandler exposes the province, district and ward directory.
type AddressHandler struct {
	resolver *address.Resolver
}

// NewAddressHandler constructs AddressHandler.
func NewAddressHandler(resolver *address.Resolver) *AddressHandler {
	return &AddressHandler{resolver: resolver}
}

func (h *AddressHandler) Provinces(c *fiber.Ctx) error {
	units, err := h.resolver.LoadProvinces(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Get provinces success", units)
}

func (h *AddressHandler) Districts(c *fiber.Ctx) error {
	units, err := h.resolver.LoadDistricts(c.UserContext(), c.Params("code"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Get districts success", units)
}

func (h *AddressHandler) Wards(c *fiber.Ctx) error {
	units, err := h.resolver.LoadWards(c.UserContext(), c.Params("code"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Get wards success", units)
}

type addressOptionsResponse struct {
	Selection address.Selection `json:"selection"`
	Stage     string            `json:"stage"`
	Complete  bool              `json:"complete"`
	Options   address.Options   `json:"options"`
}

// Options replays a province, district and ward choice and returns the
// selection together with the choices offered at every level.
func (h *AddressHandler) Options(c *fiber.Ctx) error {
	ctx := c.UserContext()
	session := address.NewSession(h.resolver)

	if err := session.LoadProvinces(ctx); err != nil {
		return err
	}
	if province := c.Query("province"); province != "" {
		if err := session.SelectProvince(ctx, province); err != nil {
			return err
		}
		if district := c.Query("district"); district != "" {
			if err := session.SelectDistrict(ctx, district); err != nil {
				return err
			}
			session.SelectWard(c.Query("ward"))
		}
	}

	selection, options := session.Snapshot()
	return respond(c, fiber.StatusOK, "Get address options success", addressOptionsResponse{
		Selection: selection,
		Stage:     selection.Stage().String(),
		Complete:  selection.Complete(),
		Options:   options,
	})
}
