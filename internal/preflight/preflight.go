package preflight

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/samber/lo"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/config"
)

// Requirement is an external binary the converter shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Available   bool
	Path        string
	Detail      string
}

// Requirements returns the binaries needed for the given download settings.
func Requirements(cfg config.DownloadConfig) []Requirement {
	return []Requirement{
		{Name: "yt-dlp", Command: cfg.YtdlpPath, Description: "video extraction"},
		{Name: "FFmpeg", Command: cfg.FFmpegPath, Description: "MP3 conversion"},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	return lo.Map(requirements, func(req Requirement, _ int) Status {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: req.Description,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			return status
		}
		path, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			return status
		}
		status.Available = true
		status.Path = path
		return status
	})
}

// Missing returns the statuses that are not available.
func Missing(statuses []Status) []Status {
	return lo.Reject(statuses, func(s Status, _ int) bool { return s.Available })
}
