package unitindex

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/staysearch/internal/domain/unit"
)

// Hash field names of a stored document.
const (
	fUnitID         = "unit_id"
	fPropertyID     = "property_id"
	fUnitTypeID     = "unit_type_id"
	fPropertyTypeID = "property_type_id"
	fCity           = "city"
	fLat            = "lat"
	fLon            = "lon"
	fPrice          = "price"
	fMinPrice       = "min_price"
	fMaxPrice       = "max_price"
	fCurrency       = "currency"
	fPriceType      = "price_type"
	fMaxOccupants   = "max_occupants"
	fAdults         = "adults"
	fChildren       = "children"
	fMultiDay       = "multi_day"
	fAmenities      = "amenities"
	fAvailFrom      = "avail_from"
	fAvail          = "avail"
	fApproved       = "approved"
	fRating         = "rating"
	fReviews        = "reviews"
	fImages         = "images"
	fUpdatedAt      = "updated_at"
	fVersion        = "version"
	fHash           = "hash"

	// fieldPrefix marks dynamic fields: "f:{name}" = "{kind}:{value}".
	fieldPrefix = "f:"
)

func encodeDocument(d *unit.Document) (map[string]string, error) {
	images, err := json.Marshal(d.Images)
	if err != nil {
		return nil, fmt.Errorf("marshal images: %w", err)
	}
	m := map[string]string{
		fUnitID:         d.UnitID,
		fPropertyID:     d.PropertyID,
		fUnitTypeID:     d.UnitTypeID,
		fPropertyTypeID: d.PropertyTypeID,
		fCity:           d.City,
		fLat:            formatFloat(d.Latitude),
		fLon:            formatFloat(d.Longitude),
		fPrice:          formatFloat(d.Price),
		fMinPrice:       formatFloat(d.MinPrice),
		fMaxPrice:       formatFloat(d.MaxPrice),
		fCurrency:       d.Currency,
		fPriceType:      d.PriceType,
		fMaxOccupants:   strconv.Itoa(d.MaxOccupants),
		fAdults:         strconv.FormatBool(d.AllowsAdults),
		fChildren:       strconv.FormatBool(d.AllowsChildren),
		fMultiDay:       strconv.FormatBool(d.MultiDay),
		fAmenities:      strings.Join(d.Amenities, ","),
		fAvailFrom:      d.Availability.From.Format(time.DateOnly),
		fAvail:          d.Availability.Markers,
		fApproved:       strconv.FormatBool(d.Approved),
		fRating:         formatFloat(d.AverageRating),
		fReviews:        strconv.Itoa(d.ReviewCount),
		fImages:         string(images),
		fUpdatedAt:      d.UpdatedAt.UTC().Format(time.RFC3339Nano),
		fVersion:        strconv.FormatInt(d.Version, 10),
		fHash:           strconv.FormatUint(d.ContentHash, 16),
	}
	for name, v := range d.Fields {
		m[fieldPrefix+name] = string(v.Kind) + ":" + v.String()
	}
	return m, nil
}

// decodeDocument rebuilds a document from its hash. An empty map means the
// key does not exist and yields (nil, nil).
func decodeDocument(m map[string]string) (*unit.Document, error) {
	if len(m) == 0 {
		return nil, nil
	}
	p := parser{m: m}
	d := &unit.Document{
		UnitID:         m[fUnitID],
		PropertyID:     m[fPropertyID],
		UnitTypeID:     m[fUnitTypeID],
		PropertyTypeID: m[fPropertyTypeID],
		City:           m[fCity],
		Latitude:       p.float(fLat),
		Longitude:      p.float(fLon),
		Price:          p.float(fPrice),
		MinPrice:       p.float(fMinPrice),
		MaxPrice:       p.float(fMaxPrice),
		Currency:       m[fCurrency],
		PriceType:      m[fPriceType],
		MaxOccupants:   p.int(fMaxOccupants),
		AllowsAdults:   p.bool(fAdults),
		AllowsChildren: p.bool(fChildren),
		MultiDay:       p.bool(fMultiDay),
		Approved:       p.bool(fApproved),
		AverageRating:  p.float(fRating),
		ReviewCount:    p.int(fReviews),
		Version:        p.int64(fVersion),
		Fields:         make(map[string]unit.FieldValue),
	}
	if d.UnitID == "" {
		return nil, fmt.Errorf("document hash without %s", fUnitID)
	}
	if s := m[fAmenities]; s != "" {
		d.Amenities = strings.Split(s, ",")
	}
	if s := m[fImages]; s != "" {
		if err := json.Unmarshal([]byte(s), &d.Images); err != nil {
			p.fail(fImages, err)
		}
	}
	if s := m[fAvailFrom]; s != "" {
		from, err := time.Parse(time.DateOnly, s)
		if err != nil {
			p.fail(fAvailFrom, err)
		}
		d.Availability = unit.Availability{From: from, Markers: m[fAvail]}
	}
	if s := m[fUpdatedAt]; s != "" {
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			p.fail(fUpdatedAt, err)
		}
		d.UpdatedAt = ts
	}
	if s := m[fHash]; s != "" {
		h, err := strconv.ParseUint(s, 16, 64)
		if err != nil {
			p.fail(fHash, err)
		}
		d.ContentHash = h
	}
	for k, v := range m {
		name, ok := strings.CutPrefix(k, fieldPrefix)
		if !ok {
			continue
		}
		kind, raw, _ := strings.Cut(v, ":")
		d.Fields[name] = unit.ParseField(unit.FieldKind(kind), raw)
	}
	if p.err != nil {
		return nil, fmt.Errorf("decode unit %s: %w", d.UnitID, p.err)
	}
	return d, nil
}

// parser records the first conversion error so decoding stays linear.
type parser struct {
	m   map[string]string
	err error
}

func (p *parser) fail(field string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("field %s: %w", field, err)
	}
}

func (p *parser) float(field string) float64 {
	s, ok := p.m[field]
	if !ok || s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.fail(field, err)
	}
	return v
}

func (p *parser) int64(field string) int64 {
	s, ok := p.m[field]
	if !ok || s == "" {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		p.fail(field, err)
	}
	return v
}

func (p *parser) int(field string) int { return int(p.int64(field)) }

func (p *parser) bool(field string) bool {
	s, ok := p.m[field]
	if !ok || s == "" {
		return false
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		p.fail(field, err)
	}
	return v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
