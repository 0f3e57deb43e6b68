package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// fileHeader is written at the top of every cold data file. The checksum in
// it covers the encoded payload that follows, not the header itself, so the
// header can be reformatted without breaking verification -- but any edit to
// the payload body will be detected.
const fileHeader = "# !!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!\n" +
	"# DO NOT MODIFY THIS FILE! 请勿修改此文件！\n" +
	"# Any modification will cause checksum verification failure\n" +
	"# 任何修改都会导致校验和验证失败，备份将无法恢复\n" +
	"# !!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!\n" +
	"# Checksum: %s\n" +
	"\n"

// Content is the cold payload of one backup: serialized inventory sections
// plus experience. Any section may be empty when the player had nothing
// there or the section was excluded at capture time.
type Content struct {
	Inventory   string  `yaml:"inventory,omitempty" json:"inventory,omitempty"`
	Armor       string  `yaml:"armor,omitempty" json:"armor,omitempty"`
	Offhand     string  `yaml:"offhand,omitempty" json:"offhand,omitempty"`
	Enderchest  string  `yaml:"enderchest,omitempty" json:"enderchest,omitempty"`
	ExpLevel    int     `yaml:"expLevel" json:"expLevel"`
	ExpProgress float64 `yaml:"expProgress" json:"expProgress"`
}

// Encode serializes the content to its canonical YAML form: no leading
// whitespace, exactly one trailing newline. The canonical form is what gets
// checksummed, so encoding must stay deterministic.
func (c *Content) Encode() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to encode backup content: %w", err)
	}
	return strings.TrimSpace(string(out)) + "\n", nil
}

// Decode parses YAML into a Content. Malformed input yields a zero-value
// Content rather than an error: a partially corrupt file should still
// restore whatever sections survive, and a hand-damaged one is caught by the
// checksum gate before it ever gets here on the normal path.
func Decode(data []byte) *Content {
	var c Content
	if err := yaml.Unmarshal(data, &c); err != nil {
		return &Content{}
	}
	return &c
}

// Checksum returns the lowercase hex SHA-256 digest of the string. The empty
// string hashes to a normal 64-character digest, not an error.
func Checksum(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// WriteFile encodes the content and writes it to path under the warning
// header, creating parent directories as needed. Returns the checksum of the
// encoded payload.
func WriteFile(path string, c *Content) (string, error) {
	encoded, err := c.Encode()
	if err != nil {
		return "", err
	}
	checksum := Checksum(encoded)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create backup directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(fmt.Sprintf(fileHeader, checksum)+encoded), 0644); err != nil {
		return "", fmt.Errorf("failed to write backup file: %w", err)
	}
	return checksum, nil
}

// ReadFile loads the content from a cold data file. The header lines parse
// as YAML comments, so the whole file is fed to the decoder as-is. A missing
// file is an error; malformed content is not (see Decode).
func ReadFile(path string) (*Content, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup file: %w", err)
	}
	return Decode(data), nil
}

// VerifyFile re-reads the file at path and checks the payload region against
// the expected checksum. It returns false when the file is missing or no
// checksum was recorded. The payload region starts at the first line that is
// not a '#' comment; the comparison is over the literal remaining bytes
// (trimmed, with the trailing newline restored), so any byte-level change to
// the body fails verification while header-only edits do not.
func VerifyFile(path, expected string) bool {
	if expected == "" {
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}

	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	start := 0
	for start < len(lines) && strings.HasPrefix(lines[start], "#") {
		start++
	}
	body := strings.TrimSpace(strings.Join(lines[start:], "\n")) + "\n"

	return Checksum(body) == expected
}
