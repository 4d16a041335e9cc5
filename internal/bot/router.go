package bot

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/ports"
)

// RouteKind tags what an inbound message is.
type RouteKind int

const (
	RouteIgnore RouteKind = iota
	RouteCancel
	RouteCommand
	RouteURL
	RoutePhoto
	RouteShortText
	RouteLongText
)

func (k RouteKind) String() string {
	switch k {
	case RouteCancel:
		return "cancel"
	case RouteCommand:
		return "command"
	case RouteURL:
		return "url"
	case RoutePhoto:
		return "photo"
	case RouteShortText:
		return "short_text"
	case RouteLongText:
		return "long_text"
	}
	return "ignore"
}

// Route is the router verdict for one message.
type Route struct {
	Kind    RouteKind
	Command string
	Arg     string
}

var urlPattern = regexp.MustCompile(`^https?://\S+$`)

type pattern struct {
	kind  RouteKind
	match func(in ports.Inbound, text string) (Route, bool)
}

// Router matches inbound messages against an ordered pattern list; the first match wins.
type Router struct {
	patterns []pattern
}

// NewRouter builds the router; texts shorter than threshold runes become ideas.
func NewRouter(threshold int) *Router {
	if threshold <= 0 {
		threshold = 200
	}
	return &Router{patterns: []pattern{
		{RouteCancel, func(_ ports.Inbound, text string) (Route, bool) {
			return Route{Kind: RouteCancel}, IsCancel(text)
		}},
		{RoutePhoto, func(in ports.Inbound, _ string) (Route, bool) {
			return Route{Kind: RoutePhoto, Arg: strings.TrimSpace(in.Caption)}, in.PhotoFileID != ""
		}},
		{RouteCommand, func(_ ports.Inbound, text string) (Route, bool) {
			if !strings.HasPrefix(text, "/") {
				return Route{}, false
			}
			cmd, arg, _ := strings.Cut(text[1:], " ")
			cmd, _, _ = strings.Cut(cmd, "@")
			return Route{Kind: RouteCommand, Command: strings.ToLower(cmd), Arg: strings.TrimSpace(arg)}, true
		}},
		{RouteURL, func(_ ports.Inbound, text string) (Route, bool) {
			return Route{Kind: RouteURL, Arg: text}, urlPattern.MatchString(text)
		}},
		{RouteShortText, func(_ ports.Inbound, text string) (Route, bool) {
			return Route{Kind: RouteShortText, Arg: text}, text != "" && utf8.RuneCountInString(text) < threshold
		}},
		{RouteLongText, func(_ ports.Inbound, text string) (Route, bool) {
			return Route{Kind: RouteLongText, Arg: text}, text != ""
		}},
	}}
}

// Route classifies a message.
func (r *Router) Route(in ports.Inbound) Route {
	text := strings.TrimSpace(in.Text)
	for _, p := range r.patterns {
		if route, ok := p.match(in, text); ok {
			return route
		}
	}
	return Route{Kind: RouteIgnore}
}

// IsCancel reports whether text aborts the current session.
func IsCancel(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "cancel", "/cancel":
		return true
	}
	return false
}

// CallbackAction is the decoded verb of an inline button.
type CallbackAction string

const (
	ActionApprove CallbackAction = "approve"
	ActionReject  CallbackAction = "reject"
	ActionCaption CallbackAction = "caption"
	ActionEdit    CallbackAction = "edit"
)

// Edit fields carried by ed:<field>:<post> buttons.
const (
	EditTitle   = "t"
	EditExcerpt = "e"
	EditImage   = "i"
	EditDone    = "x"
)

// Callback is a decoded inline button press.
type Callback struct {
	Action  CallbackAction
	Variant domain.Variant
	Field   string
	ID      int64
}

// ParseCallback decodes ap:a:<id>, ap:b:<id>, rj:<id>, cap:<id> and ed:<field>:<post>.
func ParseCallback(data string) (Callback, bool) {
	parts := strings.Split(data, ":")
	id := func(s string) (int64, bool) {
		n, err := strconv.ParseInt(s, 10, 64)
		return n, err == nil && n > 0
	}

	switch {
	case len(parts) == 3 && parts[0] == "ap":
		v, ok := domain.ParseVariant(parts[1])
		n, okID := id(parts[2])
		return Callback{Action: ActionApprove, Variant: v, ID: n}, ok && okID
	case len(parts) == 2 && parts[0] == "rj":
		n, ok := id(parts[1])
		return Callback{Action: ActionReject, ID: n}, ok
	case len(parts) == 2 && parts[0] == "cap":
		n, ok := id(parts[1])
		return Callback{Action: ActionCaption, ID: n}, ok
	case len(parts) == 3 && parts[0] == "ed":
		switch parts[1] {
		case EditTitle, EditExcerpt, EditImage, EditDone:
		default:
			return Callback{}, false
		}
		n, ok := id(parts[2])
		return Callback{Action: ActionEdit, Field: parts[1], ID: n}, ok
	}
	return Callback{}, false
}

// EditKeyboard is the field menu of the edit loop.
func EditKeyboard(postID int64) ports.Keyboard {
	id := strconv.FormatInt(postID, 10)
	return ports.Keyboard{
		{{Text: "Title", Data: "ed:t:" + id}, {Text: "Excerpt", Data: "ed:e:" + id}},
		{{Text: "Image", Data: "ed:i:" + id}, {Text: "Done", Data: "ed:x:" + id}},
	}
}
