// Package resample prepares recorded instrument waveforms for replay: it
// decodes the instrument's CSV export, halves the sampling rate by pairwise
// averaging, and repeat-concatenates the result into a long replay file.
package resample

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// Instrument exports frame the sample rows between these tags.
const (
	headerEndTag = "#EndHeader"
	markBeginTag = "#BeginMark"
)

// valueColumn is the column carrying the amplitude in instrument exports.
const valueColumn = 2

// ErrNoData is returned when an instrument file contains no sample rows.
var ErrNoData = errors.New("no waveform data found")

// Decode parses an instrument CSV export: rows before the #EndHeader tag
// are metadata, rows from #BeginMark on are markers, and everything in
// between carries one sample per row. Rows that do not parse are skipped.
func Decode(r io.Reader) ([]float64, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var samples []float64
	inData := false
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if len(record) == 0 {
			continue
		}
		switch record[0] {
		case headerEndTag:
			inData = true
			continue
		case markBeginTag:
			inData = false
		}
		if !inData || len(record) <= valueColumn {
			continue
		}
		v, err := strconv.ParseFloat(record[valueColumn], 64)
		if err != nil {
			continue
		}
		samples = append(samples, v)
	}
	if len(samples) == 0 {
		return nil, ErrNoData
	}
	return samples, nil
}

// DecodeFile decodes an instrument export from disk. The files are written
// in Shift JIS, so the stream is transcoded before parsing.
func DecodeFile(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Decode(transform.NewReader(f, japanese.ShiftJIS.NewDecoder()))
}

// Downsample halves the sampling rate by averaging adjacent sample pairs.
// A trailing odd sample is dropped.
func Downsample(samples []float64) []float64 {
	n := len(samples) / 2
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = (samples[2*i] + samples[2*i+1]) / 2
	}
	return out
}

// WriteRepeated writes samples to w as [time, value] CSV rows, repeated
// the given number of times with a continuous time axis at sampleRate.
func WriteRepeated(w io.Writer, samples []float64, repeats int, sampleRate float64) error {
	if repeats < 1 {
		return fmt.Errorf("repeats must be positive, got %d", repeats)
	}
	writer := csv.NewWriter(w)
	dt := 1.0 / sampleRate

	total := 0
	for rep := 0; rep < repeats; rep++ {
		for _, v := range samples {
			row := []string{
				strconv.FormatFloat(float64(total)*dt, 'g', -1, 64),
				strconv.FormatFloat(v, 'g', -1, 64),
			}
			if err := writer.Write(row); err != nil {
				return err
			}
			total++
		}
	}
	writer.Flush()
	return writer.Error()
}

// Process converts an instrument export into a replay CSV: decode,
// downsample 2:1 to targetRate, and repeat-concatenate.
func Process(inPath, outPath string, repeats int, targetRate float64) error {
	raw, err := DecodeFile(inPath)
	if err != nil {
		return fmt.Errorf("decode %s: %w", inPath, err)
	}
	resampled := Downsample(raw)

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	if err := WriteRepeated(out, resampled, repeats, targetRate); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	return nil
}
