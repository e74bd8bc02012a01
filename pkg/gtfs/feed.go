// Package gtfs reads static GTFS feeds and turns their schedules into a
// stop-to-stop transit network.
package gtfs

import (
	"archive/zip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"slices"
	"strconv"
	"strings"
)

// ErrMissingFile is returned when a required table is absent from a feed.
var ErrMissingFile = errors.New("missing GTFS file")

// Stop is a row of stops.txt.
type Stop struct {
	ID   string
	Name string
	Lat  float64
	Lon  float64
}

// Trip is a row of trips.txt.
type Trip struct {
	ID      string
	RouteID string
}

// StopTime is a row of stop_times.txt. Times are seconds after midnight of
// the service day; -1 means the time was left blank.
type StopTime struct {
	StopID    string
	Sequence  int
	Arrival   int
	Departure int
}

// Feed is the subset of a GTFS feed needed to build a transit network.
type Feed struct {
	Stops      map[string]Stop
	Trips      map[string]Trip
	RouteNames map[string]string
	// StopTimes holds each trip's stop times ordered by stop_sequence.
	StopTimes map[string][]StopTime
}

// Open reads a GTFS zip archive from disk.
func Open(filename string) (*Feed, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("open GTFS zip: %w", err)
	}
	defer zr.Close()
	return read(&zr.Reader)
}

// Read reads a GTFS zip archive of the given size from r.
func Read(r io.ReaderAt, size int64) (*Feed, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open GTFS zip: %w", err)
	}
	return read(zr)
}

func read(zr *zip.Reader) (*Feed, error) {
	files := make(map[string]*zip.File)
	for _, f := range zr.File {
		// Feeds are sometimes zipped with an enclosing folder.
		files[strings.ToLower(path.Base(f.Name))] = f
	}

	feed := &Feed{
		Stops:      make(map[string]Stop),
		Trips:      make(map[string]Trip),
		RouteNames: make(map[string]string),
		StopTimes:  make(map[string][]StopTime),
	}

	tables := []struct {
		name     string
		required bool
		consume  func(row func(string) string) error
	}{
		{"stops.txt", true, feed.consumeStop},
		{"routes.txt", false, feed.consumeRoute},
		{"trips.txt", true, feed.consumeTrip},
		{"stop_times.txt", true, feed.consumeStopTime},
	}
	for _, t := range tables {
		f, ok := files[t.name]
		if !ok {
			if t.required {
				return nil, fmt.Errorf("%w: %s", ErrMissingFile, t.name)
			}
			continue
		}
		if err := readTable(f, t.consume); err != nil {
			return nil, fmt.Errorf("read %s: %w", t.name, err)
		}
	}

	for _, st := range feed.StopTimes {
		slices.SortStableFunc(st, func(a, b StopTime) int { return a.Sequence - b.Sequence })
	}

	log.Printf("GTFS feed: %d stops, %d routes, %d trips", len(feed.Stops), len(feed.RouteNames), len(feed.Trips))
	return feed, nil
}

// readTable streams a CSV table, calling consume with a column accessor for
// every data row.
func readTable(f *zip.File, consume func(row func(string) string) error) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	r := csv.NewReader(rc)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("header: %w", err)
	}
	h := headerIndex(header)

	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		get := func(k string) string {
			i, ok := h[k]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		if err := consume(get); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
}

func headerIndex(hdr []string) map[string]int {
	m := make(map[string]int, len(hdr))
	for i, k := range hdr {
		k = strings.TrimPrefix(k, "\ufeff")
		m[strings.ToLower(strings.TrimSpace(k))] = i
	}
	return m
}

func (f *Feed) consumeStop(get func(string) string) error {
	id := get("stop_id")
	if id == "" {
		return nil
	}
	latS, lonS := get("stop_lat"), get("stop_lon")
	if latS == "" || lonS == "" {
		// Generic nodes and boarding areas may omit coordinates.
		return nil
	}
	lat, err := strconv.ParseFloat(latS, 64)
	if err != nil {
		return fmt.Errorf("stop %s: stop_lat: %w", id, err)
	}
	lon, err := strconv.ParseFloat(lonS, 64)
	if err != nil {
		return fmt.Errorf("stop %s: stop_lon: %w", id, err)
	}
	f.Stops[id] = Stop{ID: id, Name: get("stop_name"), Lat: lat, Lon: lon}
	return nil
}

func (f *Feed) consumeRoute(get func(string) string) error {
	id := get("route_id")
	if id == "" {
		return nil
	}
	name := get("route_short_name")
	if name == "" {
		name = get("route_long_name")
	}
	f.RouteNames[id] = name
	return nil
}

func (f *Feed) consumeTrip(get func(string) string) error {
	id := get("trip_id")
	if id == "" {
		return nil
	}
	f.Trips[id] = Trip{ID: id, RouteID: get("route_id")}
	return nil
}

func (f *Feed) consumeStopTime(get func(string) string) error {
	tripID, stopID := get("trip_id"), get("stop_id")
	if tripID == "" || stopID == "" {
		return nil
	}
	seq, err := strconv.Atoi(get("stop_sequence"))
	if err != nil {
		return fmt.Errorf("trip %s: stop_sequence: %w", tripID, err)
	}
	arr, err := ParseTime(get("arrival_time"))
	if err != nil {
		return fmt.Errorf("trip %s: arrival_time: %w", tripID, err)
	}
	dep, err := ParseTime(get("departure_time"))
	if err != nil {
		return fmt.Errorf("trip %s: departure_time: %w", tripID, err)
	}
	// A blank side takes the other, as timepoints usually carry only one.
	if arr < 0 {
		arr = dep
	}
	if dep < 0 {
		dep = arr
	}
	f.StopTimes[tripID] = append(f.StopTimes[tripID], StopTime{
		StopID:    stopID,
		Sequence:  seq,
		Arrival:   arr,
		Departure: dep,
	})
	return nil
}

// ParseTime parses a GTFS "H:MM:SS" time into seconds. Hours may exceed 23
// for trips running past midnight. A blank value returns -1.
func ParseTime(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return -1, nil
	}
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	var v [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid time %q", s)
		}
		v[i] = n
	}
	if v[1] > 59 || v[2] > 59 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return v[0]*3600 + v[1]*60 + v[2], nil
}
