package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/graph"
)

// ExcalidrawBinding represents the connection of an arrow to an element.
type ExcalidrawBinding struct {
	ElementID string  `json:"elementId"`
	Focus     float64 `json:"focus"`
	Gap       float64 `json:"gap"`
}

// ExcalidrawElement represents a single element in the Excalidraw scene.
type ExcalidrawElement struct {
	Type            string             `json:"type"`
	Version         int                `json:"version"`
	VersionNonce    int                `json:"versionNonce"`
	IsDeleted       bool               `json:"isDeleted"`
	ID              string             `json:"id"`
	FillStyle       string             `json:"fillStyle"`
	StrokeWidth     int                `json:"strokeWidth"`
	StrokeStyle     string             `json:"strokeStyle"`
	Roughness       int                `json:"roughness"`
	Opacity         int                `json:"opacity"`
	Angle           int                `json:"angle"`
	X               float64            `json:"x"`
	Y               float64            `json:"y"`
	StrokeColor     string             `json:"strokeColor"`
	BackgroundColor string             `json:"backgroundColor"`
	Width           float64            `json:"width"`
	Height          float64            `json:"height"`
	Seed            int                `json:"seed"`
	GroupIds        []string           `json:"groupIds"`
	Roundness       any                `json:"roundness"`
	BoundElements   []any              `json:"boundElements"`
	Updated         int64              `json:"updated"`
	Link            any                `json:"link"`
	Locked          bool               `json:"locked"`
	Text            string             `json:"text,omitempty"`
	FontSize        int                `json:"fontSize,omitempty"`
	FontFamily      int                `json:"fontFamily,omitempty"`
	TextAlign       string             `json:"textAlign,omitempty"`
	VerticalAlign   string             `json:"verticalAlign,omitempty"`
	StartBinding    *ExcalidrawBinding `json:"startBinding,omitempty"`
	EndBinding      *ExcalidrawBinding `json:"endBinding,omitempty"`
	Points          [][]float64        `json:"points,omitempty"`
	EndArrowhead    string             `json:"endArrowhead,omitempty"`
}

// ExcalidrawScene represents the full file format.
type ExcalidrawScene struct {
	Type     string              `json:"type"`
	Version  int                 `json:"version"`
	Source   string              `json:"source"`
	Elements []ExcalidrawElement `json:"elements"`
	AppState map[string]any      `json:"appState"`
	Files    map[string]any      `json:"files"`
}

const (
	boxWidth  = 220.0
	boxHeight = 80.0
	paddingX  = 40.0
	rowGap    = 160.0
)

type palette struct{ stroke, fill string }

var (
	targetColors = palette{"#1890ff", "#e6f7ff"}
	phaseColors  = palette{"#52c41a", "#f6ffed"}
	fileColors   = palette{"#fa8c16", "#fff7e6"}
)

// scene accumulates elements and remembers where each box was placed.
type scene struct {
	elements []ExcalidrawElement
	boxes    map[string]ExcalidrawElement
}

func base(kind, id string, x, y float64) ExcalidrawElement {
	return ExcalidrawElement{
		Type:        kind,
		Version:     1,
		ID:          id,
		FillStyle:   "solid",
		StrokeWidth: 1,
		StrokeStyle: "solid",
		Roughness:   1,
		Opacity:     100,
		X:           x,
		Y:           y,
		Seed:        1,
		GroupIds:    []string{},
	}
}

// box adds a labelled rectangle once per id.
func (sc *scene) box(id, label string, x, y float64, colors palette) {
	if _, ok := sc.boxes[id]; ok {
		return
	}
	rect := base("rectangle", id, x, y)
	rect.StrokeColor = colors.stroke
	rect.BackgroundColor = colors.fill
	rect.Width, rect.Height = boxWidth, boxHeight
	rect.Roundness = map[string]int{"type": 3}
	sc.elements = append(sc.elements, rect)
	sc.boxes[id] = rect

	text := base("text", id+"-text", x+10, y+10)
	text.StrokeColor = "#000000"
	text.BackgroundColor = "transparent"
	text.Width, text.Height = boxWidth-20, boxHeight-20
	text.Text = label
	text.FontSize = 16
	text.FontFamily = 1
	text.TextAlign = "left"
	text.VerticalAlign = "top"
	sc.elements = append(sc.elements, text)
}

// arrow connects the bottom of one box to the top of another.
func (sc *scene) arrow(from, to string) {
	src, dst := sc.boxes[from], sc.boxes[to]
	startX, startY := src.X+boxWidth/2, src.Y+boxHeight
	endX, endY := dst.X+boxWidth/2, dst.Y

	a := base("arrow", fmt.Sprintf("%s-%s", from, to), startX, startY)
	a.StrokeColor = "#000000"
	a.BackgroundColor = "transparent"
	a.Width, a.Height = endX-startX, endY-startY
	a.Points = [][]float64{{0, 0}, {endX - startX, endY - startY}}
	a.StartBinding = &ExcalidrawBinding{ElementID: from, Focus: 0.1, Gap: 1}
	a.EndBinding = &ExcalidrawBinding{ElementID: to, Focus: 0.1, Gap: 1}
	a.EndArrowhead = "arrow"
	sc.elements = append(sc.elements, a)
}

// Scene lays targets out in the top row, their phases in the second and the
// phases' files in the third. A file built by several phases is drawn once.
func Scene(s *graph.Store) ExcalidrawScene {
	sc := &scene{elements: []ExcalidrawElement{}, boxes: map[string]ExcalidrawElement{}}
	tree := BuildTree(s)

	phaseX, fileX := 0.0, 0.0
	for _, t := range tree {
		targetX := phaseX
		sc.box(string(t.ID), fmt.Sprintf("%s\n(%s)", t.Name, t.ProductType), targetX, 0, targetColors)
		for _, p := range t.Phases {
			sc.box(string(p.ID), p.Summary, phaseX, boxHeight+rowGap, phaseColors)
			sc.arrow(string(t.ID), string(p.ID))
			phaseX += boxWidth + paddingX
			for _, f := range p.Files {
				if _, seen := sc.boxes[string(f.ID)]; !seen {
					sc.box(string(f.ID), f.Name, fileX, 2*(boxHeight+rowGap), fileColors)
					fileX += boxWidth + paddingX
				}
				sc.arrow(string(p.ID), string(f.ID))
			}
		}
		if len(t.Phases) == 0 {
			phaseX += boxWidth + paddingX
		}
	}

	return ExcalidrawScene{
		Type:     "excalidraw",
		Version:  2,
		Source:   "xcodeproj-mcp",
		Elements: sc.elements,
		AppState: map[string]any{"viewBackgroundColor": "#ffffff"},
		Files:    map[string]any{},
	}
}

// Excalidraw writes the scene of s as Excalidraw JSON.
func Excalidraw(s *graph.Store, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(Scene(s))
}
