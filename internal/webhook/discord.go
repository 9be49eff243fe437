// internal/webhook/discord.go
package webhook

import (
	"unicode/utf8"

	"github.com/signalnine/housewatch/internal/protocol"
)

// Discord message and embed limits
// https://discord.com/developers/docs/resources/message#embed-object-embed-limits
const (
	MaxContent     = 2000
	MaxDescription = 4096
	MaxFields      = 25
	maxFieldName   = 256
	maxFieldValue  = 1024
)

// emptyValue stands in for "" since Discord rejects empty field values
const emptyValue = "\u200b"

// Message is the JSON body of a Discord-compatible webhook call
type Message struct {
	Content string  `json:"content"`
	Embeds  []Embed `json:"embeds"`
}

// Embed is one rich block of a Message
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Thumbnail   *Thumbnail   `json:"thumbnail,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type Thumbnail struct {
	URL string `json:"url"`
}

// Color returns the embed colour for a severity
func Color(s protocol.Severity) int {
	switch s {
	case protocol.SeverityNominal:
		return 0x00FF00
	case protocol.SeverityWarning:
		return 0xFFFF00
	case protocol.SeverityCritical:
		return 0xFF0000
	default:
		return 0x0000FF
	}
}

// Render builds the webhook message for an alert. thumbnails maps an
// alert kind to an image URL and may be nil.
func Render(a protocol.Alert, thumbnails map[protocol.Kind]string) Message {
	embed := Embed{
		Title:       a.Title,
		Description: a.Description,
		Color:       Color(a.Severity),
	}

	if a.Kind == protocol.KindDiagnostics {
		embed.Description = codeBlock(a.Description)
	} else {
		embed.Description = tail(embed.Description, MaxDescription)
	}

	for i, f := range a.Fields {
		if i == MaxFields {
			break
		}
		value := f.Value
		if value == "" {
			value = emptyValue
		}
		embed.Fields = append(embed.Fields, EmbedField{
			Name:   head(f.Name, maxFieldName),
			Value:  head(value, maxFieldValue),
			Inline: true,
		})
	}

	if url := thumbnails[a.Kind]; url != "" {
		embed.Thumbnail = &Thumbnail{URL: url}
	}

	return Message{Content: head(a.Summary, MaxContent), Embeds: []Embed{embed}}
}

// codeBlock fences text, dropping the oldest text if it would not fit
func codeBlock(text string) string {
	const fenceOpen, fenceClose = "```\n", "\n```"
	return fenceOpen + tail(text, MaxDescription-len(fenceOpen)-len(fenceClose)) + fenceClose
}

// tail keeps the last n bytes of s without splitting a UTF-8 sequence
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[len(s)-n:]
	for len(s) > 0 && !utf8.RuneStart(s[0]) {
		s = s[1:]
	}
	return s
}

// head keeps the first n bytes of s without splitting a UTF-8 sequence
func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 {
		r, size := utf8.DecodeLastRuneInString(s)
		if r != utf8.RuneError || size > 1 {
			break
		}
		s = s[:len(s)-1]
	}
	return s
}
