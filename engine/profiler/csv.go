package profiler

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/flexnn/flexnn/engine"
)

// WriteMemoryProfileCSV writes the raw malloc/free event log in the fixed
// schema from spec.md §6:
//
//	layer_index,memory_type,event_type,ptr,size,time
func WriteMemoryProfileCSV(path string, events []Event) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", engine.ErrIOFailure, path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"layer_index", "memory_type", "event_type", "ptr", "size", "time"}); err != nil {
		return fmt.Errorf("%w: write header: %v", engine.ErrIOFailure, err)
	}
	for _, e := range events {
		eventType := "0"
		if e.Kind == EventMalloc {
			eventType = "1"
		}
		record := []string{
			strconv.Itoa(e.LayerIndex),
			strconv.Itoa(int(e.Class)),
			eventType,
			fmt.Sprintf("%x", e.Key),
			strconv.Itoa(e.Size),
			strconv.FormatFloat(e.Time, 'f', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("%w: write row: %v", engine.ErrIOFailure, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: flush %s: %v", engine.ErrIOFailure, path, err)
	}
	return nil
}

// ReadMemoryProfileCSV reads back the event log written by
// WriteMemoryProfileCSV, skipping the header row and any "#"-prefixed
// comment lines (matching the original reader's tolerance for a comment
// header, from original_source/examples/flexnnschedule.h's
// read_memory_profile).
func ReadMemoryProfileCSV(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", engine.ErrIOFailure, path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", engine.ErrIOFailure, path, err)
	}

	var events []Event
	for _, rec := range records {
		if len(rec) == 0 || rec[0] == "" || rec[0][0] == '#' || rec[0] == "layer_index" {
			continue
		}
		if len(rec) != 6 {
			return nil, fmt.Errorf("%w: %s: expected 6 fields, got %d", engine.ErrIOFailure, path, len(rec))
		}
		layer, err1 := strconv.Atoi(rec[0])
		class, err2 := strconv.Atoi(rec[1])
		eventType, err3 := strconv.Atoi(rec[2])
		key, err4 := strconv.ParseInt(rec[3], 16, 64)
		size, err5 := strconv.Atoi(rec[4])
		t, err6 := strconv.ParseFloat(rec[5], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil || err6 != nil {
			return nil, fmt.Errorf("%w: %s: malformed row %v", engine.ErrIOFailure, path, rec)
		}
		kind := EventFree
		if eventType == 1 {
			kind = EventMalloc
		}
		events = append(events, Event{
			LayerIndex: layer,
			Class:      engine.MemoryClass(class),
			Kind:       kind,
			Key:        int(key),
			Size:       size,
			Time:       t,
		})
	}
	return events, nil
}

// WriteTimeProfileCSV writes the per-operator timing schema from spec.md §6:
//
//	layer_index,loading_begin,loading_end,loading_duration,computing_begin,computing_end,computing_duration
func WriteTimeProfileCSV(path string, profiles []LayerTimeProfile) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", engine.ErrIOFailure, path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"layer_index", "loading_begin", "loading_end", "loading_duration", "computing_begin", "computing_end", "computing_duration"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("%w: write header: %v", engine.ErrIOFailure, err)
	}
	for _, p := range profiles {
		record := []string{
			strconv.Itoa(p.LayerIndex),
			formatMS(p.LoadingBegin), formatMS(p.LoadingEnd), formatMS(p.LoadingDuration),
			formatMS(p.ComputingBegin), formatMS(p.ComputingEnd), formatMS(p.ComputingDuration),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("%w: write row: %v", engine.ErrIOFailure, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: flush %s: %v", engine.ErrIOFailure, path, err)
	}
	return nil
}

func formatMS(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// ReadTimeProfileCSV reads back the schema written by WriteTimeProfileCSV.
func ReadTimeProfileCSV(path string) ([]LayerTimeProfile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", engine.ErrIOFailure, path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", engine.ErrIOFailure, path, err)
	}

	var out []LayerTimeProfile
	for _, rec := range records {
		if len(rec) == 0 || rec[0] == "" || rec[0][0] == '#' || rec[0] == "layer_index" {
			continue
		}
		if len(rec) != 7 {
			return nil, fmt.Errorf("%w: %s: expected 7 fields, got %d", engine.ErrIOFailure, path, len(rec))
		}
		vals := make([]float64, 6)
		layer, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %s: malformed row %v", engine.ErrIOFailure, path, rec)
		}
		for i := 0; i < 6; i++ {
			vals[i], err = strconv.ParseFloat(rec[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: malformed row %v", engine.ErrIOFailure, path, rec)
			}
		}
		out = append(out, LayerTimeProfile{
			LayerIndex: layer,
			LoadingBegin: vals[0], LoadingEnd: vals[1], LoadingDuration: vals[2],
			ComputingBegin: vals[3], ComputingEnd: vals[4], ComputingDuration: vals[5],
		})
	}
	return out, nil
}
