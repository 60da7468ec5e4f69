package theme

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

type RGB [3]uint8

type Palette struct {
	Name   string
	Colors []RGB
}

// Plasma is the built-in palette, dark purple through magenta to yellow
func Plasma() *Palette {
	return &Palette{
		Name: "plasma",
		Colors: []RGB{
			{0x0d, 0x08, 0x87},
			{0x41, 0x04, 0x9d},
			{0x6a, 0x00, 0xa8},
			{0x8f, 0x0d, 0xa4},
			{0xb1, 0x2a, 0x90},
			{0xcc, 0x47, 0x78},
			{0xe1, 0x64, 0x62},
			{0xf2, 0x84, 0x4b},
			{0xfc, 0xa6, 0x36},
			{0xfc, 0xce, 0x25},
			{0xf0, 0xf9, 0x21},
		},
	}
}

// LoadGPL reads a GIMP palette file
func LoadGPL(path string) (*Palette, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := ParseGPL(f)
	if err != nil {
		return nil, fmt.Errorf("palette %s: %w", path, err)
	}
	return p, nil
}

// ParseGPL parses GIMP palette text
func ParseGPL(r io.Reader) (*Palette, error) {
	p := &Palette{}
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if strings.HasPrefix(line, "Name:") {
			p.Name = strings.TrimSpace(strings.TrimPrefix(line, "Name:"))
			continue
		}

		// Skip headers and comments
		if line == "" || line[0] == '#' || strings.HasPrefix(line, "GIMP") || strings.HasPrefix(line, "Columns") {
			continue
		}

		// First 3 fields are R G B
		fields := strings.Fields(line)
		if len(fields) >= 3 {
			r, err1 := strconv.Atoi(fields[0])
			g, err2 := strconv.Atoi(fields[1])
			b, err3 := strconv.Atoi(fields[2])
			if err1 == nil && err2 == nil && err3 == nil {
				p.Colors = append(p.Colors, RGB{uint8(r), uint8(g), uint8(b)})
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(p.Colors) == 0 {
		return nil, fmt.Errorf("no colors found")
	}

	return p, nil
}

// LoadOrDefault loads path, falling back to Plasma when path is empty or unreadable
func LoadOrDefault(path string) (*Palette, error) {
	if path == "" {
		return Plasma(), nil
	}
	p, err := LoadGPL(path)
	if err != nil {
		return Plasma(), err
	}
	return p, nil
}

// Lookup returns interpolated color for normalized value 0-1
func (p *Palette) Lookup(norm float64) RGB {
	if norm <= 0 || len(p.Colors) == 1 {
		return p.Colors[0]
	}
	if norm >= 1 {
		return p.Colors[len(p.Colors)-1]
	}

	pos := norm * float64(len(p.Colors)-1)
	i := int(pos)
	frac := pos - float64(i)

	c0 := p.Colors[i]
	c1 := p.Colors[i+1]

	return RGB{
		lerp(c0[0], c1[0], frac),
		lerp(c0[1], c1[1], frac),
		lerp(c0[2], c1[2], frac),
	}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a)*(1-t) + float64(b)*t)
}
