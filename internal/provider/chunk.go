package provider

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrEmptyChunk is returned by DecodeChunk for a chunk that carries no data.
var ErrEmptyChunk = errors.New("empty chunk")

var validate = validator.New()

// Chunk is one batch of raw search results.
type Chunk struct {
	Tickets    []Ticket         `json:"tickets" validate:"dive"`
	FlightLegs []FlightLeg      `json:"flight_legs" validate:"dive"`
	Agents     map[string]Agent `json:"agents"`
}

// Ticket is a priced itinerary referencing flight legs by index.
type Ticket struct {
	ID        string          `json:"id"`
	Signature string          `json:"signature"`
	Hashsum   string          `json:"hashsum"`
	Segments  []TicketSegment `json:"segments"`
	Proposals []Proposal      `json:"proposals" validate:"dive"`
}

// TicketSegment lists indices into the chunk's FlightLegs.
type TicketSegment struct {
	Flights []int `json:"flights"`
}

// Proposal is one agent's offer for a ticket.
type Proposal struct {
	AgentID     json.Number           `json:"agent_id" validate:"required"`
	Price       Price                 `json:"price"`
	MinimumFare MinimumFare           `json:"minimum_fare"`
	FlightTerms map[string]FlightTerm `json:"flight_terms"`
}

// Price is a proposal's price.
type Price struct {
	Value float64 `json:"value" validate:"gte=0"`
}

// MinimumFare describes the cheapest fare of a proposal.
type MinimumFare struct {
	FareKey            string     `json:"fare_key"`
	FareCode           string     `json:"fare_code"`
	Code               string     `json:"code"`
	Handbags           *Allowance `json:"handbags"`
	Baggage            *Allowance `json:"baggage"`
	ReturnBeforeFlight *Rule      `json:"return_before_flight"`
	ChangeBeforeFlight *Rule      `json:"change_before_flight"`
}

// Allowance is a baggage allowance. Weight is absent when unknown.
type Allowance struct {
	Count  int      `json:"count"`
	Weight *float64 `json:"weight"`
}

// Rule is a fare rule flag.
type Rule struct {
	Available    bool `json:"available"`
	IsFromConfig bool `json:"is_from_config"`
}

// FlightTerm holds per-leg fare terms, keyed by leg index.
type FlightTerm struct {
	TripClass                  string            `json:"trip_class"`
	MarketingCarrierDesignator CarrierDesignator `json:"marketing_carrier_designator"`
}

// CarrierDesignator identifies a carrier and flight number.
type CarrierDesignator struct {
	Carrier string `json:"carrier"`
	Number  string `json:"number"`
}

// FlightLeg is a single non-stop flight.
type FlightLeg struct {
	Origin                     string            `json:"origin" validate:"required"`
	Destination                string            `json:"destination" validate:"required"`
	LocalDepartureDateTime     LocalTime         `json:"local_departure_date_time"`
	LocalArrivalDateTime       LocalTime         `json:"local_arrival_date_time"`
	DepartureUnixTimestamp     int64             `json:"departure_unix_timestamp"`
	ArrivalUnixTimestamp       int64             `json:"arrival_unix_timestamp"`
	OperatingCarrierDesignator CarrierDesignator `json:"operating_carrier_designator"`
}

// Agent is a selling agent. Label maps locale to display names.
type Agent struct {
	Label map[string]AgentLabel `json:"label"`
}

// AgentLabel holds an agent's display names for one locale.
type AgentLabel struct {
	Default string `json:"default"`
}

// LocalTime is a provider timestamp normalized to "YYYY-MM-DDTHH:MM[...]".
// The provider sends either "YYYY-MM-DD HH:MM" strings or unix seconds.
type LocalTime string

// UnmarshalJSON accepts a string, a number of unix seconds, or null.
func (t *LocalTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = LocalTime(strings.ReplaceAll(s, " ", "T"))
		return nil
	}

	var secs float64
	if err := json.Unmarshal(data, &secs); err != nil {
		return fmt.Errorf("local time: %w", err)
	}
	if secs == 0 {
		*t = ""
		return nil
	}
	*t = LocalTime(time.Unix(int64(secs), 0).UTC().Format(time.RFC3339))
	return nil
}

// IsEmpty reports whether the chunk carries no results.
func (c *Chunk) IsEmpty() bool {
	return len(c.Tickets) == 0 && len(c.FlightLegs) == 0 && len(c.Agents) == 0
}

// DecodeChunk parses and validates a raw provider chunk. It returns
// ErrEmptyChunk for chunks without data.
func DecodeChunk(raw json.RawMessage) (Chunk, error) {
	var c Chunk
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return c, ErrEmptyChunk
	}

	if err := json.Unmarshal(trimmed, &c); err != nil {
		return Chunk{}, fmt.Errorf("decode chunk: %w", err)
	}
	if c.IsEmpty() {
		return c, ErrEmptyChunk
	}
	if err := validate.Struct(c); err != nil {
		return Chunk{}, fmt.Errorf("validate chunk: %w", err)
	}
	return c, nil
}
