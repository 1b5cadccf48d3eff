package chi

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/staysearch/internal/domain/search/request"
	"github.com/kailas-cloud/staysearch/internal/domain/search/result"
)

const dateLayout = "2006-01-02"

// Error codes returned in errorResponse.Code.
const (
	codeBadRequest        = "bad_request"
	codeValidationFailed  = "validation_failed"
	codeUnauthorized      = "unauthorized"
	codeNotFound          = "not_found"
	codeUnknownEvent      = "unknown_event"
	codeSearchUnavailable = "search_unavailable"
	codeRebuildRunning    = "rebuild_in_progress"
	codeLockBusy          = "lock_not_acquired"
	codeInternal          = "internal_error"
)

type errorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type geoDTO struct {
	Lat      float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon      float64 `json:"lon" validate:"gte=-180,lte=180"`
	RadiusKm float64 `json:"radius_km" validate:"gt=0"`
}

type amenityDTO struct {
	ID     string  `json:"id" validate:"required"`
	Weight float64 `json:"weight" validate:"gte=0"`
}

type fieldDTO struct {
	Name   string   `json:"name" validate:"required"`
	Equals *string  `json:"equals,omitempty"`
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
}

type searchRequest struct {
	City           string       `json:"city"`
	Geo            *geoDTO      `json:"geo,omitempty"`
	MinPrice       *float64     `json:"min_price,omitempty" validate:"omitempty,gte=0"`
	MaxPrice       *float64     `json:"max_price,omitempty" validate:"omitempty,gte=0"`
	Currency       string       `json:"currency,omitempty" validate:"omitempty,len=3"`
	CheckIn        string       `json:"check_in,omitempty" validate:"required_with=CheckOut"`
	CheckOut       string       `json:"check_out,omitempty" validate:"required_with=CheckIn"`
	Guests         int          `json:"guests,omitempty" validate:"gte=0"`
	Amenities      []amenityDTO `json:"amenities,omitempty" validate:"dive"`
	Fields         []fieldDTO   `json:"fields,omitempty" validate:"dive"`
	MinRating      *float64     `json:"min_rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	PropertyTypeID string       `json:"property_type_id,omitempty"`
	UnitTypeID     string       `json:"unit_type_id,omitempty"`
	Page           int          `json:"page,omitempty" validate:"gte=0"`
	PageSize       int          `json:"page_size,omitempty" validate:"gte=0"`
}

func (r searchRequest) filters() (request.Filters, error) {
	f := request.Filters{
		City:           r.City,
		MinPrice:       r.MinPrice,
		MaxPrice:       r.MaxPrice,
		Currency:       r.Currency,
		Guests:         r.Guests,
		MinRating:      r.MinRating,
		PropertyTypeID: r.PropertyTypeID,
		UnitTypeID:     r.UnitTypeID,
	}
	if r.Geo != nil {
		f.Geo = &request.Geo{Lat: r.Geo.Lat, Lon: r.Geo.Lon, RadiusKm: r.Geo.RadiusKm}
	}
	if r.CheckIn != "" {
		in, err := time.Parse(dateLayout, r.CheckIn)
		if err != nil {
			return request.Filters{}, fmt.Errorf("check_in: %w", err)
		}
		out, err := time.Parse(dateLayout, r.CheckOut)
		if err != nil {
			return request.Filters{}, fmt.Errorf("check_out: %w", err)
		}
		f.Dates = &request.Dates{CheckIn: in, CheckOut: out}
	}
	for _, a := range r.Amenities {
		f.Amenities = append(f.Amenities, request.Amenity{ID: a.ID, Weight: a.Weight})
	}
	for _, ff := range r.Fields {
		f.Fields = append(f.Fields, request.FieldFilter{Name: ff.Name, Equals: ff.Equals, Min: ff.Min, Max: ff.Max})
	}
	return f, nil
}

type unitItem struct {
	UnitID         string         `json:"unit_id"`
	PropertyID     string         `json:"property_id"`
	UnitTypeID     string         `json:"unit_type_id"`
	PropertyTypeID string         `json:"property_type_id"`
	City           string         `json:"city"`
	Latitude       float64        `json:"latitude"`
	Longitude      float64        `json:"longitude"`
	Price          float64        `json:"price"`
	Currency       string         `json:"currency"`
	PriceType      string         `json:"price_type"`
	MaxOccupants   int            `json:"max_occupants"`
	AverageRating  float64        `json:"average_rating"`
	ReviewCount    int            `json:"review_count"`
	Amenities      []string       `json:"amenities"`
	Fields         map[string]any `json:"fields,omitempty"`
	Images         []string       `json:"images,omitempty"`
	Score          float64        `json:"score"`
}

type searchResponse struct {
	Items           []unitItem `json:"items"`
	Total           int        `json:"total"`
	Page            int        `json:"page"`
	PageSize        int        `json:"page_size"`
	RelaxationLevel string     `json:"relaxation_level"`
	RelaxationInfo  []string   `json:"relaxation_info,omitempty"`
}

func pageToResponse(p *result.Page) searchResponse {
	items := make([]unitItem, len(p.Items()))
	for i := range p.Items() {
		items[i] = itemToResponse(&p.Items()[i])
	}
	return searchResponse{
		Items:           items,
		Total:           p.Total(),
		Page:            p.Page(),
		PageSize:        p.PageSize(),
		RelaxationLevel: p.Level().String(),
		RelaxationInfo:  p.Explanations(),
	}
}

func itemToResponse(it *result.Item) unitItem {
	d := it.Document()
	var fields map[string]any
	if len(d.Fields) > 0 {
		fields = make(map[string]any, len(d.Fields))
		for name, v := range d.Fields {
			fields[name] = v.Value()
		}
	}
	amenities := d.Amenities
	if amenities == nil {
		amenities = []string{}
	}
	return unitItem{
		UnitID:         d.UnitID,
		PropertyID:     d.PropertyID,
		UnitTypeID:     d.UnitTypeID,
		PropertyTypeID: d.PropertyTypeID,
		City:           d.City,
		Latitude:       d.Latitude,
		Longitude:      d.Longitude,
		Price:          d.Price,
		Currency:       d.Currency,
		PriceType:      d.PriceType,
		MaxOccupants:   d.MaxOccupants,
		AverageRating:  d.AverageRating,
		ReviewCount:    d.ReviewCount,
		Amenities:      amenities,
		Fields:         fields,
		Images:         d.Images,
		Score:          it.Score(),
	}
}

type acceptedResponse struct {
	Status string `json:"status"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
