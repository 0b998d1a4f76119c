package signing

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"hash"
	"sort"
	"strings"
)

const (
	manifestPath = "META-INF/MANIFEST.MF"
	metaInfDir   = "META-INF"
	digestSuffix = "-Digest"
	// maxLineLength is the JAR manifest line limit, excluding the line break.
	maxLineLength = 72
)

// digestSpec is a named hash used in manifest attributes.
type digestSpec struct {
	name string
	new  func() hash.Hash
}

// allowedDigests lists the accepted manifest digests, strongest first.
var allowedDigests = []digestSpec{
	{name: "SHA-512", new: sha512.New},
	{name: "SHA-384", new: sha512.New384},
	{name: "SHA-256", new: sha256.New},
}

func lookupDigest(name string) (digestSpec, bool) {
	for _, d := range allowedDigests {
		if strings.EqualFold(d.name, name) {
			return d, true
		}
	}
	return digestSpec{}, false
}

// attributes holds one manifest section.
type attributes map[string]string

// manifest is a parsed MANIFEST.MF or signature file.
type manifest struct {
	main     attributes
	sections map[string]attributes
}

// parseManifest reads the main section and the named sections of a JAR
// manifest. Lines starting with a single space continue the previous value.
func parseManifest(data []byte) (*manifest, error) {
	m := &manifest{main: attributes{}, sections: map[string]attributes{}}
	current := m.main
	inMain := true
	lastKey := ""

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			if !inMain && current != nil {
				name := current["Name"]
				if name == "" {
					return nil, fmt.Errorf("%w: manifest section without Name", ErrMalformedContainer)
				}
				m.sections[name] = current
			}
			inMain = false
			current = nil
			lastKey = ""
			continue
		}
		if strings.HasPrefix(line, " ") {
			if current == nil || lastKey == "" {
				return nil, fmt.Errorf("%w: dangling continuation line", ErrMalformedContainer)
			}
			current[lastKey] += line[1:]
			continue
		}
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			return nil, fmt.Errorf("%w: invalid manifest line %q", ErrMalformedContainer, line)
		}
		if current == nil {
			current = attributes{}
		}
		current[key] = value
		lastKey = key
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !inMain && current != nil {
		name := current["Name"]
		if name == "" {
			return nil, fmt.Errorf("%w: manifest section without Name", ErrMalformedContainer)
		}
		m.sections[name] = current
	}
	return m, nil
}

// selectDigest picks the strongest allowed "<ALG><suffix>" attribute of a section.
// A section carrying only disallowed digests fails with ErrUnsupportedDigest.
func selectDigest(attrs attributes, suffix string) (digestSpec, []byte, error) {
	var rejected []string
	for key := range attrs {
		alg, ok := strings.CutSuffix(key, suffix)
		if !ok || alg == "" {
			continue
		}
		if _, allowed := lookupDigest(alg); !allowed {
			rejected = append(rejected, alg)
		}
	}
	for _, d := range allowedDigests {
		value, ok := attrs[d.name+suffix]
		if !ok {
			continue
		}
		sum, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return digestSpec{}, nil, fmt.Errorf("%w: invalid %s%s value", ErrMalformedContainer, d.name, suffix)
		}
		return d, sum, nil
	}
	if len(rejected) > 0 {
		sort.Strings(rejected)
		return digestSpec{}, nil, fmt.Errorf("%w: %s", ErrUnsupportedDigest, strings.Join(rejected, ", "))
	}
	return digestSpec{}, nil, fmt.Errorf("%w: no %s attribute", ErrNoSignature, strings.TrimPrefix(suffix, "-"))
}

// manifestWriter builds manifest text with CRLF line breaks and 72 byte lines.
type manifestWriter struct {
	buf bytes.Buffer
}

func (w *manifestWriter) attr(key, value string) {
	line := key + ": " + value
	first := true
	for len(line) > 0 {
		limit := maxLineLength - 2
		if !first {
			limit--
			w.buf.WriteByte(' ')
		}
		if len(line) < limit {
			limit = len(line)
		}
		w.buf.WriteString(line[:limit])
		w.buf.WriteString("\r\n")
		line = line[limit:]
		first = false
	}
}

func (w *manifestWriter) end() {
	w.buf.WriteString("\r\n")
}

// section renders a named section on its own so its bytes can be digested.
func section(name string, attrs ...[2]string) []byte {
	var w manifestWriter
	w.attr("Name", name)
	for _, a := range attrs {
		w.attr(a[0], a[1])
	}
	w.end()
	return w.buf.Bytes()
}

func digestOf(d digestSpec, data []byte) string {
	h := d.new()
	h.Write(data)
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
