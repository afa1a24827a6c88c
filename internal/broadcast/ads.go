// Package broadcast sends scheduled promotional messages ("ads") kept in a
// JSON file next to the bot.
package broadcast

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// ScheduleLayout is the combined "date time" layout of Schedule.
const ScheduleLayout = "2006-01-02 15:04:05"

// Schedule is the local wall-clock time an ad becomes due.
type Schedule struct {
	Date string `json:"date"` // 2006-01-02
	Time string `json:"time"` // 15:04:05
}

// At parses the schedule in loc.
func (s Schedule) At(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(ScheduleLayout, s.Date+" "+s.Time, loc)
}

// Ad is one scheduled broadcast.
type Ad struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Link        string    `json:"link"`
	ImagePath   string    `json:"image_path,omitempty"`
	Active      bool      `json:"active"`
	Schedule    *Schedule `json:"schedule,omitempty"`
}

// Message is the text body sent for the ad.
func (a Ad) Message() string {
	return a.Title + "\n" + a.Description + "\n" + a.Link
}

type adsFile struct {
	Ads []Ad `json:"ads"`
}

// Load reads the ads file. A missing or malformed file yields no ads.
func Load(path string) []Ad {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("ads: read failed", "path", path, "error", err)
		}
		return nil
	}
	var f adsFile
	if err := json.Unmarshal(data, &f); err != nil {
		slog.Warn("ads: malformed file ignored", "path", path, "error", err)
		return nil
	}
	return f.Ads
}

// Save rewrites the ads file atomically.
func Save(path string, ads []Ad) error {
	if ads == nil {
		ads = []Ad{}
	}
	data, err := json.MarshalIndent(adsFile{Ads: ads}, "", "    ")
	if err != nil {
		return fmt.Errorf("ads: encode: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".ads-*.json")
	if err != nil {
		return fmt.Errorf("ads: save: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("ads: save: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("ads: save: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("ads: save: %w", err)
	}
	return nil
}
