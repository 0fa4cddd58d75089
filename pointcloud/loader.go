package pointcloud

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/sync/errgroup"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported point cloud format")
	ErrMalformed         = errors.New("malformed point cloud")
)

// Format identifies a text point cloud layout
type Format string

const (
	FormatXYZ    Format = "xyz"    // x y z
	FormatXYZN   Format = "xyzn"   // x y z nx ny nz
	FormatXYZRGB Format = "xyzrgb" // x y z r g b, colors in [0,1]
	FormatPTS    Format = "pts"    // [count] then x y z [i] [r g b], colors in [0,255]
	FormatPCD    Format = "pcd"    // PCL header + ASCII data
)

// FormatFromPath picks the format from the file extension
func FormatFromPath(path string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch Format(ext) {
	case FormatXYZ, FormatXYZN, FormatXYZRGB, FormatPTS, FormatPCD:
		return Format(ext), nil
	}
	return "", fmt.Errorf("%w: extension %q", ErrUnsupportedFormat, ext)
}

// Load reads a point cloud file, choosing the decoder from its extension.
// An empty file yields an empty cloud.
func Load(path string) (*PointCloud, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open point cloud: %w", err)
	}
	defer f.Close()

	pc, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	pc.Name = filepath.Base(path)

	return pc, nil
}

// LoadAll loads several files concurrently. Results keep the order of paths;
// the first failure cancels the remaining loads.
func LoadAll(ctx context.Context, paths []string) ([]*PointCloud, error) {
	clouds := make([]*PointCloud, len(paths))
	g, ctx := errgroup.WithContext(ctx)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			pc, err := Load(path)
			if err != nil {
				return err
			}
			clouds[i] = pc
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return clouds, nil
}

// Decode reads a point cloud in the given format
func Decode(r io.Reader, format Format) (*PointCloud, error) {
	switch format {
	case FormatXYZ:
		return decodeColumns(r, 3, -1, 0)
	case FormatXYZN:
		return decodeColumns(r, 6, -1, 0)
	case FormatXYZRGB:
		return decodeColumns(r, 6, 3, 1)
	case FormatPTS:
		return decodePTS(r)
	case FormatPCD:
		return decodePCD(r)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// decodeColumns reads whitespace separated rows of at least minFields numbers.
// Shorter rows are skipped and counted. When colorAt >= 0, columns
// colorAt..colorAt+2 hold r g b in [0, colorScale].
func decodeColumns(r io.Reader, minFields, colorAt int, colorScale float64) (*PointCloud, error) {
	pc := &PointCloud{}
	scanner := newScanner(r)

	line := 0
	for scanner.Scan() {
		line++
		fields, ok := splitLine(scanner.Text())
		if !ok {
			continue
		}
		if len(fields) < minFields {
			pc.Skipped++
			continue
		}

		values, err := parseFloats(fields[:minFields])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
		}
		pc.Points = append(pc.Points, mgl64.Vec3{values[0], values[1], values[2]})
		if colorAt >= 0 {
			pc.Colors = append(pc.Colors, rgbFromUnit(values[colorAt:colorAt+3], colorScale))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return pc, nil
}

// decodePTS reads Leica/Open3D style .pts: an optional point count line, then
// x y z, x y z i, x y z r g b or x y z i r g b rows. Shorter rows are skipped.
func decodePTS(r io.Reader) (*PointCloud, error) {
	pc := &PointCloud{}
	scanner := newScanner(r)

	line := 0
	for scanner.Scan() {
		line++
		fields, ok := splitLine(scanner.Text())
		if !ok {
			continue
		}
		if len(fields) == 1 && len(pc.Points) == 0 {
			if _, err := strconv.Atoi(fields[0]); err == nil {
				continue
			}
		}
		if len(fields) < 3 {
			pc.Skipped++
			continue
		}

		values, err := parseFloats(fields)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
		}
		pc.Points = append(pc.Points, mgl64.Vec3{values[0], values[1], values[2]})

		var rgb []float64
		switch len(values) {
		case 6:
			rgb = values[3:6]
		case 7:
			rgb = values[4:7]
		}
		if rgb != nil {
			pc.Colors = append(pc.Colors, rgbFromUnit(rgb, 255))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(pc.Colors) != len(pc.Points) {
		pc.Colors = nil
	}

	return pc, nil
}

// decodePCD reads a PCL .pcd file with an ASCII DATA section. x, y and z are
// located through the FIELDS line; an rgb field packed as a float is decoded.
func decodePCD(r io.Reader) (*PointCloud, error) {
	scanner := newScanner(r)

	var (
		fields      []string
		counts      []int
		points      = -1
		line        int
		headerEnded bool
	)

	for !headerEnded && scanner.Scan() {
		line++
		tokens, ok := splitLine(scanner.Text())
		if !ok {
			continue
		}

		switch strings.ToUpper(tokens[0]) {
		case "FIELDS":
			fields = tokens[1:]
		case "COUNT":
			for _, t := range tokens[1:] {
				c, err := strconv.Atoi(t)
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: bad COUNT %q", ErrMalformed, line, t)
				}
				counts = append(counts, c)
			}
		case "POINTS":
			if len(tokens) < 2 {
				return nil, fmt.Errorf("%w: line %d: POINTS without value", ErrMalformed, line)
			}
			n, err := strconv.Atoi(tokens[1])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: bad POINTS %q", ErrMalformed, line, tokens[1])
			}
			points = n
		case "DATA":
			if len(tokens) < 2 || strings.ToLower(tokens[1]) != "ascii" {
				return nil, fmt.Errorf("%w: pcd DATA %s", ErrUnsupportedFormat, strings.Join(tokens[1:], " "))
			}
			headerEnded = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !headerEnded {
		return nil, fmt.Errorf("%w: pcd header without DATA line", ErrMalformed)
	}

	// column offset of each field, honoring COUNT
	offsets := make(map[string]int, len(fields))
	width := 0
	for i, name := range fields {
		offsets[strings.ToLower(name)] = width
		if i < len(counts) {
			width += counts[i]
		} else {
			width++
		}
	}
	xi, okX := offsets["x"]
	yi, okY := offsets["y"]
	zi, okZ := offsets["z"]
	if !okX || !okY || !okZ {
		return nil, fmt.Errorf("%w: pcd FIELDS %v lack x y z", ErrMalformed, fields)
	}
	rgbi, hasRGB := offsets["rgb"]
	if !hasRGB {
		rgbi, hasRGB = offsets["rgba"]
	}

	pc := &PointCloud{}
	if points > 0 {
		pc.Points = make([]mgl64.Vec3, 0, points)
	}
	for scanner.Scan() {
		line++
		tokens, ok := splitLine(scanner.Text())
		if !ok {
			continue
		}
		if len(tokens) < width {
			return nil, fmt.Errorf("%w: line %d: want %d fields, got %d", ErrMalformed, line, width, len(tokens))
		}

		values, err := parseFloats([]string{tokens[xi], tokens[yi], tokens[zi]})
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
		}
		pc.Points = append(pc.Points, mgl64.Vec3{values[0], values[1], values[2]})

		if hasRGB {
			c, err := parsePackedRGB(tokens[rgbi])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
			}
			pc.Colors = append(pc.Colors, c)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if points >= 0 && len(pc.Points) != points {
		return nil, fmt.Errorf("%w: header declares %d points, read %d", ErrMalformed, points, len(pc.Points))
	}

	return pc, nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return scanner
}

// splitLine drops comments and returns the fields of a non-empty line
func splitLine(text string) ([]string, bool) {
	if i := strings.IndexByte(text, '#'); i >= 0 {
		text = text[:i]
	}
	fields := strings.Fields(text)
	return fields, len(fields) > 0
}

func parseFloats(fields []string) ([]float64, error) {
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", f)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("non-finite number %q", f)
		}
		values[i] = v
	}
	return values, nil
}

// rgbFromUnit converts three channels in [0, scale] to an opaque color
func rgbFromUnit(rgb []float64, scale float64) color.RGBA {
	channel := func(v float64) uint8 {
		return uint8(mgl64.Clamp(math.Round(v*255/scale), 0, 255))
	}
	return color.RGBA{R: channel(rgb[0]), G: channel(rgb[1]), B: channel(rgb[2]), A: 255}
}

// parsePackedRGB decodes PCL's rgb field: either a float whose bits hold
// 0x00RRGGBB, or a plain unsigned integer
func parsePackedRGB(token string) (color.RGBA, error) {
	var bits uint32
	if u, err := strconv.ParseUint(token, 10, 32); err == nil {
		bits = uint32(u)
	} else {
		f, err := strconv.ParseFloat(token, 32)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("bad rgb %q", token)
		}
		bits = math.Float32bits(float32(f))
	}
	return color.RGBA{R: uint8(bits >> 16), G: uint8(bits >> 8), B: uint8(bits), A: 255}, nil
}
