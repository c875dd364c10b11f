// package formatter renders channel and user lists as plain text, CSV, Markdown or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/desertthunder/livewatch/internal/models"
	"github.com/desertthunder/livewatch/internal/shared"
)

// Output formats accepted by [Write].
const (
	FormatText     = "text"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Formats lists every supported output format.
var Formats = []string{FormatText, FormatCSV, FormatMarkdown, FormatJSON}

// ChannelsToCSV converts channels to CSV with columns: ID, Login, Type, Name, Live, Viewers, Title, Category, URL
func ChannelsToCSV(channels []*models.Channel) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Login", "Type", "Name", "Live", "Viewers", "Title", "Category", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, ch := range channels {
		record := []string{
			strconv.FormatInt(ch.ID, 10),
			ch.Login,
			ch.Type,
			ch.Name,
			strconv.FormatBool(ch.Live),
			strconv.Itoa(ch.Viewers),
			ch.Title,
			ch.Category,
			ch.URL(),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ChannelsToMarkdown renders channels under Live and Offline headings.
func ChannelsToMarkdown(title string, channels []*models.Channel) ([]byte, error) {
	var buf bytes.Buffer

	live, offline := partition(channels)
	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Channels**: %d (%d live)\n\n", len(channels), len(live))

	if len(live) > 0 {
		buf.WriteString("## Live\n\n")
		for _, ch := range live {
			fmt.Fprintf(&buf, "- [%s](%s) - %s", ch.Name, ch.URL(), ch.Title)
			if ch.Category != "" {
				fmt.Fprintf(&buf, " (%s)", ch.Category)
			}
			fmt.Fprintf(&buf, " [%s]\n", viewers(ch.Viewers))
		}
		buf.WriteString("\n")
	}

	if len(offline) > 0 {
		buf.WriteString("## Offline\n\n")
		for _, ch := range offline {
			fmt.Fprintf(&buf, "- [%s](%s)\n", ch.Name, ch.URL())
		}
	}

	return buf.Bytes(), nil
}

// ChannelsToText converts channels to one line each, live channels first.
func ChannelsToText(channels []*models.Channel) ([]byte, error) {
	var buf bytes.Buffer

	live, offline := partition(channels)
	for _, ch := range live {
		fmt.Fprintf(&buf, "%d. ● %s (%s) - %s", ch.ID, ch.Name, ch.Login, ch.Title)
		if ch.Category != "" {
			fmt.Fprintf(&buf, " [%s]", ch.Category)
		}
		fmt.Fprintf(&buf, " %s\n", viewers(ch.Viewers))
	}
	for _, ch := range offline {
		fmt.Fprintf(&buf, "%d. ○ %s (%s) offline\n", ch.ID, ch.Name, ch.Login)
	}

	return buf.Bytes(), nil
}

// UsersToText converts users to one line each with their favorite count.
func UsersToText(users []*models.User) ([]byte, error) {
	var buf bytes.Buffer
	for _, u := range users {
		fmt.Fprintf(&buf, "%d. %s (%s on %s) - %d favorites\n", u.ID, u.Name, u.Login, u.Type, len(u.Favorites))
	}
	return buf.Bytes(), nil
}

// ToJSON renders v as indented JSON.
func ToJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// Render converts channels to the named format.
func Render(format, title string, channels []*models.Channel) ([]byte, error) {
	switch format {
	case FormatText, "":
		return ChannelsToText(channels)
	case FormatCSV:
		return ChannelsToCSV(channels)
	case FormatMarkdown:
		return ChannelsToMarkdown(title, channels)
	case FormatJSON:
		return ToJSON(channels)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// Write renders channels to w.
func Write(w io.Writer, format, title string, channels []*models.Channel) error {
	data, err := Render(format, title, channels)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// WriteFile renders channels to the file at path.
func WriteFile(path, format, title string, channels []*models.Channel) error {
	data, err := Render(format, title, channels)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func partition(channels []*models.Channel) (live, offline []*models.Channel) {
	for _, ch := range channels {
		if ch.Live {
			live = append(live, ch)
		} else {
			offline = append(offline, ch)
		}
	}
	return live, offline
}

func viewers(n int) string {
	if n == 1 {
		return "1 viewer"
	}
	return strconv.Itoa(n) + " viewers"
}
