/*
 * This file is part of Vox (https://github.com/voxlabs/vox-core).
 * Copyright (C) 2025 Vox Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

// Package textproc applies the user's dictionary to raw engine output before
// the text is released. Entries run strictly in insertion order and each
// entry's output feeds the next, so later entries may target text introduced
// by earlier ones.
package textproc

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/voxlabs/vox-core/internal/logging"
	"github.com/voxlabs/vox-core/internal/metrics"
)

// Entry is one substitution rule. Pattern is a literal substring unless
// IsRegex is set.
type Entry struct {
	Pattern       string `json:"pattern"`
	Replacement   string `json:"replacement"`
	IsRegex       bool   `json:"is_regex"`
	CaseSensitive bool   `json:"case_sensitive"`
	Enabled       bool   `json:"enabled"`
}

// Apply runs the enabled entries over text in order and returns the result.
// Apply is total: a malformed regular expression disables that entry for
// this invocation and processing continues with the rest.
func Apply(text string, entries []Entry) string {
	for _, e := range entries {
		if !e.Enabled || e.Pattern == "" {
			continue
		}

		if e.IsRegex {
			expr := e.Pattern
			if !e.CaseSensitive {
				expr = "(?i)" + expr
			}
			re, err := regexp.Compile(expr)
			if err != nil {
				logging.LogWarn("Skipping malformed dictionary entry",
					zap.String("pattern", e.Pattern),
					zap.Error(err),
				)
				metrics.RecordDictionarySkip()
				continue
			}
			text = re.ReplaceAllString(text, e.Replacement)
			continue
		}

		if e.CaseSensitive {
			text = strings.ReplaceAll(text, e.Pattern, e.Replacement)
			continue
		}

		// Case-insensitive literal: quote the pattern so regexp does the
		// folding without interpreting metacharacters.
		re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(e.Pattern))
		if err != nil {
			logging.LogWarn("Skipping malformed dictionary entry",
				zap.String("pattern", e.Pattern),
				zap.Error(err),
			)
			continue
		}
		text = re.ReplaceAllLiteralString(text, e.Replacement)
	}

	return text
}
