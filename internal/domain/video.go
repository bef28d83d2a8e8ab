package domain

import (
	"errors"
	"regexp"
)

var ErrInvalidVideoRef = errors.New("invalid video reference")

// videoIDPattern matches the id segment of the usual YouTube URL shapes:
// youtu.be/<id>, /v/<id>, /u/<x>/<id>, /embed/<id>, watch?v=<id>, &v=<id>.
var videoIDPattern = regexp.MustCompile(`(youtu\.be/|v/|u/\w/|embed/|watch\?v=|&v=)([^#&?]*)`)

// ExtractVideoID pulls an 11-character video id out of a user-supplied URL.
// Returns "" when the URL matches none of the known forms or the id has the
// wrong length; callers must reject the empty id before use.
func ExtractVideoID(url string) string {
	m := videoIDPattern.FindStringSubmatch(url)
	if m == nil || len(m[2]) != 11 {
		return ""
	}
	return m[2]
}
