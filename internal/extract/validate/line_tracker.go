package validate

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// LineTracker maps YAML field paths to line numbers so validation
// errors can point at the offending line.
type LineTracker struct {
	lines map[string]int
}

// NewLineTracker parses a YAML file and indexes every field path.
func NewLineTracker(filePath string) (*LineTracker, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}

	tracker := &LineTracker{lines: make(map[string]int)}
	tracker.extractLines(&node, "")
	return tracker, nil
}

// GetLine returns the line number for a field path such as
// "server.listen" or "site_rules[2]". Returns 0 when unknown.
func (lt *LineTracker) GetLine(path string) int {
	if line, ok := lt.lines[path]; ok {
		return line
	}
	return 0
}

func (lt *LineTracker) extractLines(node *yaml.Node, path string) {
	if node == nil {
		return
	}

	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) > 0 {
			lt.extractLines(node.Content[0], path)
		}

	case yaml.MappingNode:
		for i := 0; i < len(node.Content); i += 2 {
			keyNode := node.Content[i]
			valueNode := node.Content[i+1]

			newPath := keyNode.Value
			if path != "" {
				newPath = path + "." + keyNode.Value
			}

			lt.lines[newPath] = keyNode.Line
			lt.extractLines(valueNode, newPath)
		}

	case yaml.SequenceNode:
		for i, item := range node.Content {
			indexPath := path + "[" + strconv.Itoa(i) + "]"
			lt.lines[indexPath] = item.Line
			lt.extractLines(item, indexPath)
		}

	case yaml.ScalarNode:
		lt.lines[path] = node.Line
	}
}

// GetServerLine returns the line number for a server config field.
func (lt *LineTracker) GetServerLine(field string) int {
	return lt.GetLine("server." + field)
}

// GetCacheLine returns the line number for a cache config field.
func (lt *LineTracker) GetCacheLine(field string) int {
	return lt.GetLine("cache." + field)
}

// GetFetchLine returns the line number for a fetch config field.
func (lt *LineTracker) GetFetchLine(field string) int {
	return lt.GetLine("fetch." + field)
}

// GetSiteRuleLine returns the line number for a site rule by index.
func (lt *LineTracker) GetSiteRuleLine(index int) int {
	if index < 0 {
		return 0
	}
	return lt.GetLine("site_rules[" + strconv.Itoa(index) + "]")
}
