package handlers

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"onebid/internal/log"
	"onebid/internal/money"
	"onebid/internal/repos"
	"onebid/internal/services"
	"onebid/internal/validate"
)

const maxImages = 8

type ListingHandler struct {
	Listings *services.ListingService
	Catalog  *services.CatalogService
}

// POST /listings (multipart/form-data)
func (h *ListingHandler) Create(c *fiber.Ctx) error {
	in := services.ListingInput{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Category:    strings.TrimSpace(c.FormValue("category")),
		IsService:   c.FormValue("itemType") == "service",
		ForRent:     c.FormValue("forRent") == "true",
	}
	t, ok := validate.ListingType(c.FormValue("type"))
	if !ok {
		return invalid(c, "type", "type must be auction or fixed")
	}
	in.Type = t
	if in.Category != "" {
		if _, ok := validate.Category(in.Category); !ok {
			return invalid(c, "category", "invalid category")
		}
	}
	for field, dst := range map[string]**money.Amount{
		"startingPrice": &in.StartingPrice,
		"minIncrement":  &in.MinIncrement,
		"askingPrice":   &in.AskingPrice,
		"minOffer":      &in.MinOffer,
	} {
		raw := c.FormValue(field)
		if raw == "" {
			continue
		}
		a, ok := validate.Amount(raw)
		if !ok {
			return invalid(c, field, field+" must be a positive amount with at most two decimals")
		}
		*dst = &a
	}
	if raw := c.FormValue("endTime"); raw != "" {
		end, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return invalid(c, "endTime", "endTime must be an RFC 3339 timestamp")
		}
		in.EndTime = &end
	}

	uploads, err := readImages(c)
	if err != nil {
		return invalid(c, "images", err.Error())
	}
	d, err := h.Listings.Create(current(c), in, uploads)
	if err != nil {
		return fail(c, "listing.create", err)
	}
	if err := created(c, d); err != nil {
		return err
	}
	log.Audit(c, "listing.create", map[string]any{"listing_id": d.ID, "type": d.Type, "images": len(uploads)})
	return nil
}

func readImages(c *fiber.Ctx) ([]services.Upload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, fmt.Errorf("expected multipart form with images")
	}
	files := form.File["images"]
	if len(files) > maxImages {
		return nil, fmt.Errorf("at most %d images", maxImages)
	}
	out := make([]services.Upload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("could not read %s", fh.Filename)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("could not read %s", fh.Filename)
		}
		out = append(out, services.Upload{Name: fh.Filename, Data: data})
	}
	return out, nil
}

// GET /listings/:id
func (h *ListingHandler) Get(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return invalid(c, "id", "invalid listing id")
	}
	d, err := h.Listings.Get(id)
	if err != nil {
		return fail(c, "listing.get", err)
	}
	return send(c, d)
}

// GET /listings/mine
func (h *ListingHandler) Mine(c *fiber.Ctx) error {
	cards, err := h.Listings.Mine(current(c))
	if err != nil {
		return fail(c, "listing.mine", err)
	}
	return send(c, nonNil(cards))
}

// GET /listings/search
func (h *ListingHandler) Search(c *fiber.Ctx) error {
	var f repos.SearchFilter
	if raw := c.Query("query"); strings.TrimSpace(raw) != "" {
		q, ok := validate.Q(raw)
		if !ok {
			return invalid(c, "query", "enter a valid keyword (letters/numbers only)")
		}
		f.Query = q
	}
	if raw := c.Query("category"); raw != "" {
		cat, ok := validate.Category(raw)
		if !ok {
			return invalid(c, "category", "invalid category")
		}
		f.Category = cat
	}
	if raw := c.Query("type"); raw != "" {
		t, ok := validate.ListingType(raw)
		if !ok {
			return invalid(c, "type", "type must be auction or fixed")
		}
		f.Type = t
	}
	switch c.Query("itemType") {
	case "":
	case "item":
		f.Service = boolPtr(false)
	case "service":
		f.Service = boolPtr(true)
	default:
		return invalid(c, "itemType", "itemType must be item or service")
	}
	forRent, okRent := validate.Bool(c.Query("forRent"))
	if !okRent {
		return invalid(c, "forRent", "forRent must be true or false")
	}
	f.ForRent = forRent
	for field, dst := range map[string]**money.Amount{"minPrice": &f.MinPrice, "maxPrice": &f.MaxPrice} {
		if raw := c.Query(field); raw != "" {
			a, ok := validate.Amount(raw)
			if !ok {
				return invalid(c, field, field+" must be a positive amount")
			}
			*dst = &a
		}
	}
	sort, okSort := validate.Sort(c.Query("sort"))
	if !okSort {
		return invalid(c, "sort", "unknown sort order")
	}
	f.Sort = sort
	f.Limit = validate.Limit(c.QueryInt("limit"), 50, 100)

	cards, err := h.Catalog.Search(f)
	if err != nil {
		return fail(c, "listing.search", err)
	}
	return send(c, nonNil(cards))
}

// GET /listings/top
func (h *ListingHandler) Top(c *fiber.Ctx) error {
	cards, err := h.Catalog.TopAuctions(validate.Limit(c.QueryInt("limit"), 10, 50))
	if err != nil {
		return fail(c, "listing.top", err)
	}
	return send(c, nonNil(cards))
}

func boolPtr(b bool) *bool { return &b }

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
