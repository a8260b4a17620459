package pip

import (
	"regexp"
	"strings"

	"github.com/rios0rios0/depaudit/internal/domain/entities"
	"github.com/rios0rios0/depaudit/internal/domain/repositories"
)

// requirementPattern matches "name[separator version]" at the start of a line.
// Anything after the version (markers, inline comments) is ignored.
var requirementPattern = regexp.MustCompile(
	`^([A-Za-z0-9_-]+)\s*(?:(==|!=|<=|>=|<|>)\s*([0-9][0-9A-Za-z.*+!-]*))?`,
)

// packageNamePattern extracts the leading package name of a requirement line.
var packageNamePattern = regexp.MustCompile(`^([A-Za-z0-9_-]+)`)

// parseRequirements reads a requirements.txt line by line. Blank lines and
// comments are ignored; lines that are not requirements are skipped and counted.
// A requirement without a version is recorded as entities.UnpinnedVersion.
func parseRequirements(content string) repositories.ParseResult {
	result := repositories.ParseResult{Dependencies: make(map[string]string)}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if strings.HasPrefix(trimmed, "-") {
			result.SkippedLines++ // pip options such as -r or -e
			continue
		}

		match := requirementPattern.FindStringSubmatch(trimmed)
		if match == nil || !endsAtBoundary(trimmed, len(match[0])) {
			result.SkippedLines++
			continue
		}

		name, version := match[1], match[3]
		if match[2] == "" {
			version = entities.UnpinnedVersion
		}
		result.Dependencies[name] = version
	}

	return result
}

// endsAtBoundary rejects matches that stop in the middle of something the grammar
// does not cover, such as "pkg[extra]" or "pkg~=1.0", so they are skipped rather than
// mis-recorded as unpinned.
func endsAtBoundary(line string, matched int) bool {
	if matched == len(line) {
		return true
	}
	switch line[matched] {
	case ' ', '\t', ';', '#', ',':
		return true
	default:
		return false
	}
}

// rewriteRequirements replaces every requirement whose package is in updates with
// "name==latest", leaving all other lines exactly as they were. A rewritten line
// keeps its carriage return so CRLF files stay CRLF.
func rewriteRequirements(content string, updates map[string]string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "-") {
			continue
		}

		match := packageNamePattern.FindStringSubmatch(trimmed)
		if match == nil {
			continue
		}

		if latest, ok := updates[match[1]]; ok {
			lines[i] = match[1] + "==" + latest
			if strings.HasSuffix(line, "\r") {
				lines[i] += "\r"
			}
		}
	}
	return strings.Join(lines, "\n")
}
