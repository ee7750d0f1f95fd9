// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"log"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/font/opentype"
)

// Font selects one of the panel's glyph sets.
type Font int

const (
	FontSmall  Font = iota // ~8 px, one page per line
	FontMedium             // 8x16
	FontBold               // 8x16 bold
	FontLarge              // ~24 px bold digits
)

func (f Font) String() string {
	switch f {
	case FontSmall:
		return "small"
	case FontMedium:
		return "medium"
	case FontBold:
		return "bold"
	case FontLarge:
		return "large"
	}
	return "unknown"
}

var (
	facesOnce sync.Once
	faces     map[Font]font.Face
)

// Face returns the x/image face backing f. Unknown fonts fall back to
// FontMedium.
func (f Font) Face() font.Face {
	facesOnce.Do(loadFaces)
	if face, ok := faces[f]; ok {
		return face
	}
	return faces[FontMedium]
}

func loadFaces() {
	faces = map[Font]font.Face{
		FontSmall:  basicfont.Face7x13,
		FontMedium: inconsolata.Regular8x16,
		FontBold:   inconsolata.Bold8x16,
		FontLarge:  inconsolata.Bold8x16,
	}

	if face, err := truetype(gomono.TTF, 8); err != nil {
		log.Printf("display: small font: %v (using 7x13)", err)
	} else {
		faces[FontSmall] = face
	}
	if face, err := truetype(gomonobold.TTF, 24); err != nil {
		log.Printf("display: large font: %v (using bold 8x16)", err)
	} else {
		faces[FontLarge] = face
	}
}

func truetype(ttf []byte, size float64) (font.Face, error) {
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
