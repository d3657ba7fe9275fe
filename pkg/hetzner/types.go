package hetzner

import (
	"strconv"
	"time"
)

// CloudServer is a server record from the Hetzner Cloud API
type CloudServer struct {
	ID         int64             `json:"id"`
	Name       string            `json:"name"`
	Status     string            `json:"status"`
	Created    time.Time         `json:"created"`
	ServerType ServerType        `json:"server_type"`
	Datacenter Datacenter        `json:"datacenter"`
	PublicNet  PublicNet         `json:"public_net"`
	Labels     map[string]string `json:"labels"`
}

// ServerType describes a cloud server plan with specs and pricing
type ServerType struct {
	Name   string  `json:"name"`
	Cores  int     `json:"cores"`
	Memory float64 `json:"memory"`
	Disk   int     `json:"disk"`
	Prices []Price `json:"prices"`
}

// Price is a per-location price entry
type Price struct {
	Location     string      `json:"location"`
	PriceMonthly PriceAmount `json:"price_monthly"`
}

// PriceAmount carries prices as decimal strings, the way the API sends them
type PriceAmount struct {
	Net   string `json:"net"`
	Gross string `json:"gross"`
}

// GrossFloat parses the gross amount, zero on malformed input
func (p PriceAmount) GrossFloat() float64 {
	v, err := strconv.ParseFloat(p.Gross, 64)
	if err != nil {
		return 0
	}
	return v
}

// Datacenter identifies where a cloud server runs
type Datacenter struct {
	Name     string   `json:"name"`
	Location Location `json:"location"`
}

// Location is a datacenter location
type Location struct {
	Name string `json:"name"`
}

// PublicNet holds a server's public addressing
type PublicNet struct {
	IPv4 IPAddress `json:"ipv4"`
}

// IPAddress is a single assigned address
type IPAddress struct {
	IP string `json:"ip"`
}

// MetricsResponse wraps a server metrics query result
type MetricsResponse struct {
	Metrics Metrics `json:"metrics"`
}

// Metrics holds the time series returned for one metric type
type Metrics struct {
	Start      string                `json:"start"`
	End        string                `json:"end"`
	TimeSeries map[string]TimeSeries `json:"time_series"`
}

// TimeSeries is a list of [timestamp, value] pairs. Values arrive as strings.
type TimeSeries struct {
	Values [][]interface{} `json:"values"`
}

// FloatValues extracts the numeric values from a series, skipping malformed points
func (s TimeSeries) FloatValues() []float64 {
	out := make([]float64, 0, len(s.Values))
	for _, point := range s.Values {
		if len(point) < 2 {
			continue
		}
		switch v := point[1].(type) {
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err == nil {
				out = append(out, f)
			}
		case float64:
			out = append(out, v)
		}
	}
	return out
}

// RobotServer is a dedicated server record from the Hetzner Robot API
type RobotServer struct {
	ServerIP     string `json:"server_ip"`
	ServerNumber int64  `json:"server_number"`
	ServerName   string `json:"server_name"`
	Product      string `json:"product"`
	DC           string `json:"dc"`
	Status       string `json:"status"`
	PaidUntil    string `json:"paid_until"`
	Cancelled    bool   `json:"cancelled"`
}

type pagination struct {
	Page     int `json:"page"`
	LastPage int `json:"last_page"`
}

type meta struct {
	Pagination pagination `json:"pagination"`
}
