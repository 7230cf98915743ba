package datasets

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

// File names expected under the dataset roots.
const (
	EpicAnnotationsFile = "EPIC100_annotations.csv"
	EpicInfoFile        = "info.json"
	SeedsFile           = "seeds.json"
	PromptFile          = "prompt.json"

	// epicFramesDir is the per-participant directory holding extracted frames.
	epicFramesDir = "agentago_frames"

	// frameIDWidth is the zero padded width of the frame number in frame file names.
	frameIDWidth = 10
)

// Columns of the EPIC annotations CSV used to build records.
var epicColumns = []string{"participant_id", "video_id", "start_frame", "stop_frame", "narration"}

// EpicRecord is one annotated action interval: the frame at Start is the
// "before" image, the frame at Stop the "after" image and Narration the edit.
type EpicRecord struct {
	Participant string
	Clip        string
	Start       int
	Stop        int
	Narration   string
}

// Span returns the number of frames between the before and after images.
func (r EpicRecord) Span() int {
	return r.Stop - r.Start
}

// LoadEpicAnnotations reads the annotation CSV at path. The header must contain
// participant_id, video_id, start_frame, stop_frame and narration, in any order
// and case. Other columns are ignored.
func LoadEpicAnnotations(path string) ([]EpicRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open annotations %q", path)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	colIndex, err := readCSVHeader(reader)
	if err != nil {
		return nil, errors.Wrapf(err, "annotations %q", path)
	}
	if err := requireColumns(colIndex, epicColumns...); err != nil {
		return nil, errors.Wrapf(err, "annotations %q", path)
	}

	var records []EpicRecord
	for row := 1; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read annotations %q", path)
		}
		start, err := parseFrameIndex(record[colIndex["start_frame"]])
		if err != nil {
			return nil, errors.Wrapf(err, "annotations %q row %d: bad start_frame", path, row)
		}
		stop, err := parseFrameIndex(record[colIndex["stop_frame"]])
		if err != nil {
			return nil, errors.Wrapf(err, "annotations %q row %d: bad stop_frame", path, row)
		}
		records = append(records, EpicRecord{
			Participant: record[colIndex["participant_id"]],
			Clip:        record[colIndex["video_id"]],
			Start:       start,
			Stop:        stop,
			Narration:   record[colIndex["narration"]],
		})
	}
	return records, nil
}

// LoadInfo reads the free-form dataset description stored in info.json.
func LoadInfo(path string) (map[string]any, error) {
	info := make(map[string]any)
	if err := readJSON(path, &info); err != nil {
		return nil, err
	}
	return info, nil
}

// FramePath returns the path of frame number frame of the record's clip:
// <base>/<participant>/agentago_frames/<clip>/frame_<10 digit frame>.jpg
func FramePath(base string, r EpicRecord, frame int) string {
	return filepath.Join(base, r.Participant, epicFramesDir, r.Clip, frameFileName(frame))
}

func frameFileName(frame int) string {
	return fmt.Sprintf("frame_%0*d.jpg", frameIDWidth, frame)
}

// SeedEntry is one element of seeds.json: a prompt directory name and the
// seeds rendered for it. Seeds are kept verbatim since they only build file names.
type SeedEntry struct {
	Name  string
	Seeds []string
}

// UnmarshalJSON decodes a [name, [seed, ...]] pair. Seeds may be JSON numbers
// or strings.
func (e *SeedEntry) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return errors.Wrap(err, "seed entry must be a [name, seeds] pair")
	}
	if len(pair) != 2 {
		return errors.Errorf("seed entry must have 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.Name); err != nil {
		return errors.Wrap(err, "seed entry name must be a string")
	}
	var seeds []json.RawMessage
	if err := json.Unmarshal(pair[1], &seeds); err != nil {
		return errors.Wrapf(err, "seed entry %q: seeds must be a list", e.Name)
	}
	e.Seeds = make([]string, len(seeds))
	for i, raw := range seeds {
		raw = bytes.TrimSpace(raw)
		if len(raw) > 0 && raw[0] == '"' {
			if err := json.Unmarshal(raw, &e.Seeds[i]); err != nil {
				return errors.Wrapf(err, "seed entry %q: seed %d", e.Name, i)
			}
			continue
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return errors.Wrapf(err, "seed entry %q: seed %d", e.Name, i)
		}
		if n == "" {
			return errors.Errorf("seed entry %q: seed %d is null", e.Name, i)
		}
		e.Seeds[i] = n.String()
	}
	return nil
}

// MarshalJSON encodes the entry back into its [name, [seeds]] form.
func (e SeedEntry) MarshalJSON() ([]byte, error) {
	seeds := make([]any, len(e.Seeds))
	for i, s := range e.Seeds {
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			seeds[i] = json.Number(s)
		} else {
			seeds[i] = s
		}
	}
	return json.Marshal([]any{e.Name, seeds})
}

// LoadSeeds reads seeds.json. Entries with no seeds are rejected since a sample
// could never be drawn from them.
func LoadSeeds(path string) ([]SeedEntry, error) {
	var entries []SeedEntry
	if err := readJSON(path, &entries); err != nil {
		return nil, err
	}
	for i, e := range entries {
		if len(e.Seeds) == 0 {
			return nil, errors.Errorf("seeds %q: entry %d (%q) has no seeds", path, i, e.Name)
		}
	}
	return entries, nil
}

// SeedImagePaths returns the before and after image paths of one rendered seed.
func SeedImagePaths(base, name, seed string) (before, after string) {
	dir := filepath.Join(base, name)
	return filepath.Join(dir, seed+"_0.jpg"), filepath.Join(dir, seed+"_1.jpg")
}

// Prompt is the content of a prompt directory's prompt.json.
type Prompt struct {
	Edit   string
	Input  string
	Output string
}

type promptJSON struct {
	Edit   *string `json:"edit"`
	Input  *string `json:"input"`
	Output *string `json:"output"`
}

// LoadPrompt reads <dir>/prompt.json. The edit instruction is required; when
// full is set the input and output captions are required too.
func LoadPrompt(dir string, full bool) (Prompt, error) {
	path := filepath.Join(dir, PromptFile)
	var raw promptJSON
	if err := readJSON(path, &raw); err != nil {
		return Prompt{}, err
	}
	if raw.Edit == nil {
		return Prompt{}, errors.Errorf("%q has no \"edit\" field", path)
	}
	p := Prompt{Edit: *raw.Edit}
	if raw.Input != nil {
		p.Input = *raw.Input
	}
	if raw.Output != nil {
		p.Output = *raw.Output
	}
	if full && (raw.Input == nil || raw.Output == nil) {
		return Prompt{}, errors.Errorf("%q must have \"input\" and \"output\" fields", path)
	}
	return p, nil
}
