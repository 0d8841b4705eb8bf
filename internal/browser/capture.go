// Package browser drives a real Chrome instance through the login flow of the
// academic affairs system and captures the rendered timetable markup.
package browser

import (
	"encoding/json"
	"strings"
)

// Source tells which part of the page a capture came from.
type Source string

const (
	SourceContainer    Source = "container"     // #kcb_container inner HTML
	SourceTable        Source = "table"         // .wut_table outer HTML
	SourceBodyFallback Source = "body_fallback" // whole body, no known container found
	SourceRaw          Source = "raw"           // untagged markup supplied by the caller
)

// Tags prefixed by extractScript to its result.
var sourceTags = []struct {
	tag    string
	source Source
}{
	{"TAG:CONTAINER", SourceContainer},
	{"TAG:TABLE", SourceTable},
	{"TAG:BODY_FALLBACK", SourceBodyFallback},
}

// Capture is markup taken from a page.
type Capture struct {
	HTML   string `json:"html"`
	Source Source `json:"source"`
	URL    string `json:"url,omitempty"`
}

// extractScript finds the timetable markup in the current page, looking
// through same-origin iframes, and prefixes it with a source tag. The
// container only counts when it has real content, since the page renders an
// empty shell before the timetable loads.
const extractScript = `(function() {
	function pick(doc) {
		var el = doc.getElementById('kcb_container');
		if (el && el.innerHTML.length > 100) {
			return 'TAG:CONTAINER' + el.innerHTML;
		}
		el = doc.querySelector('.wut_table');
		if (el) {
			return 'TAG:TABLE' + el.outerHTML;
		}
		return null;
	}
	var found = pick(document);
	if (found) {
		return found;
	}
	var frames = document.querySelectorAll('iframe');
	for (var i = 0; i < frames.length; i++) {
		try {
			var doc = frames[i].contentDocument || frames[i].contentWindow.document;
			found = pick(doc);
			if (found) {
				return found;
			}
		} catch (e) {
			// cross-origin frame
		}
	}
	return 'TAG:BODY_FALLBACK' + document.body.innerHTML;
})();`

var unescaper = strings.NewReplacer(`\u003C`, "<", `\u003c`, "<", `\u003E`, ">", `\u003e`, ">", `\"`, `"`)

// DecodeCapture turns a raw script result into a Capture.
//
// raw may be the plain string returned by the script, or the same string
// JSON-quoted as some embedded web views deliver it. Escaped angle brackets
// and quotes are restored either way.
func DecodeCapture(raw string) Capture {
	s := strings.TrimSpace(raw)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		var unquoted string
		if err := json.Unmarshal([]byte(s), &unquoted); err == nil {
			s = unquoted
		} else {
			s = unescaper.Replace(s[1 : len(s)-1])
		}
	} else if strings.Contains(s, `\u003C`) || strings.Contains(s, `\u003c`) {
		s = unescaper.Replace(s)
	}

	for _, t := range sourceTags {
		if rest, ok := strings.CutPrefix(s, t.tag); ok {
			return Capture{HTML: rest, Source: t.source}
		}
	}
	return Capture{HTML: s, Source: SourceRaw}
}
