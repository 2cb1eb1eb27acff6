package apiclient

import (
	"context"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"backend-stizi/internal/collect"
)

// DefaultRadiusM is used by Nearby when no radius is given.
const DefaultRadiusM = 5000.0

var _ collect.Remote = (*Client)(nil)

type stampEnvelope struct {
	Stamp collect.Stamp `json:"stamp"`
}

type stampsEnvelope struct {
	Stamps []collect.Stamp `json:"stamps"`
}

type createStampBody struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

func (c *Client) Collect(ctx context.Context, code string) (collect.Stamp, error) {
	var out stampEnvelope
	err := c.do(ctx, fiber.MethodPost, "/stamps/collect", nil, fiber.Map{"qrCode": code}, &out)
	if err != nil {
		return collect.Stamp{}, err
	}
	return out.Stamp, nil
}

func (c *Client) Nearby(ctx context.Context, lat, lng, radiusM float64) ([]collect.Stamp, error) {
	if radiusM <= 0 {
		radiusM = DefaultRadiusM
	}
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("radius", strconv.FormatFloat(radiusM, 'f', -1, 64))

	var out stampsEnvelope
	if err := c.do(ctx, fiber.MethodGet, "/stamps/nearby", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Stamps, nil
}

func (c *Client) Mine(ctx context.Context) ([]collect.Stamp, error) {
	var out stampsEnvelope
	if err := c.do(ctx, fiber.MethodGet, "/stamps/my-stamps", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Stamps, nil
}

func (c *Client) CreateStamp(ctx context.Context, in collect.NewStamp) (collect.Stamp, error) {
	body := createStampBody{
		Name:        in.Name,
		Description: in.Description,
		Latitude:    in.Location.Lat,
		Longitude:   in.Location.Lng,
	}
	var out stampEnvelope
	if err := c.do(ctx, fiber.MethodPost, "/stamps", nil, body, &out); err != nil {
		return collect.Stamp{}, err
	}
	return out.Stamp, nil
}
