/*
 * Copyright 2025 Routekit, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package policy evaluates candidate device commands against a blacklist.
// The policy is loaded once at startup and shared read-only across all
// validations.
package policy

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/routekit/netgate/pkg/logger"
)

// Blacklist holds the three independent rule sets. Pattern rules are
// checked first, then exact commands, then keywords; the first match wins.
type Blacklist struct {
	exactCommands map[string]struct{}
	keywords      []keywordRule
	patterns      []string
}

type keywordRule struct {
	keyword string
	re      *regexp.Regexp
}

// Violation describes why a command was rejected.
type Violation struct {
	Rule    string // "pattern", "exact", or "keyword"
	Match   string // the policy entry that matched
	Message string
}

func (v *Violation) Error() string {
	return v.Message
}

// blacklistFile mirrors the on-disk policy document.
type blacklistFile struct {
	ExactCommands      []string `yaml:"exact_commands"`
	Keywords           []string `yaml:"keywords"`
	DisallowedPatterns []string `yaml:"disallowed_patterns"`
}

// New builds a Blacklist from explicit rule sets.
func New(exactCommands, keywords, patterns []string) *Blacklist {
	b := &Blacklist{
		exactCommands: make(map[string]struct{}, len(exactCommands)),
		patterns:      append([]string(nil), patterns...),
	}

	for _, cmd := range exactCommands {
		b.exactCommands[strings.ToLower(strings.TrimSpace(cmd))] = struct{}{}
	}

	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}

		b.keywords = append(b.keywords, keywordRule{
			keyword: kw,
			re:      regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`),
		})
	}

	return b
}

// Empty returns a policy that accepts everything.
func Empty() *Blacklist {
	return New(nil, nil, nil)
}

// LoadFile reads the policy YAML at path. A missing or malformed file
// degrades to the empty policy so the gateway can still start; the degraded
// state is logged loudly because it means every command is accepted.
func LoadFile(path string, log logger.Logger) *Blacklist {
	if path == "" {
		log.Warn().Msg("No blacklist policy configured; all commands will be accepted")
		return Empty()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).
			Msg("Blacklist policy unreadable; falling back to empty policy, all commands will be accepted")

		return Empty()
	}

	var file blacklistFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		log.Warn().Err(err).Str("path", path).
			Msg("Blacklist policy malformed; falling back to empty policy, all commands will be accepted")

		return Empty()
	}

	log.Info().
		Int("exact_commands", len(file.ExactCommands)).
		Int("keywords", len(file.Keywords)).
		Int("disallowed_patterns", len(file.DisallowedPatterns)).
		Str("path", path).
		Msg("Blacklist policy loaded")

	return New(file.ExactCommands, file.Keywords, file.DisallowedPatterns)
}

// Validate checks one command against the policy. It returns nil when the
// command is acceptable. Stages run in strict order and short-circuit:
// raw pattern scan, exact match, keyword match.
func (b *Blacklist) Validate(command string) *Violation {
	for _, pattern := range b.patterns {
		if pattern != "" && strings.Contains(command, pattern) {
			return &Violation{
				Rule:    "pattern",
				Match:   pattern,
				Message: fmt.Sprintf("Command contains disallowed pattern %q.", pattern),
			}
		}
	}

	normalized := strings.ToLower(strings.TrimSpace(command))

	if _, ok := b.exactCommands[normalized]; ok {
		return &Violation{
			Rule:    "exact",
			Match:   normalized,
			Message: "Command is explicitly blacklisted.",
		}
	}

	for _, rule := range b.keywords {
		if rule.re.MatchString(normalized) {
			return &Violation{
				Rule:    "keyword",
				Match:   rule.keyword,
				Message: fmt.Sprintf("Command contains blacklisted keyword %q.", rule.keyword),
			}
		}
	}

	return nil
}

// ValidateAll checks every command in a batch independently and returns the
// first violation. One rejected command rejects the whole batch.
func (b *Blacklist) ValidateAll(commands []string) *Violation {
	for _, command := range commands {
		if violation := b.Validate(command); violation != nil {
			return violation
		}
	}

	return nil
}
