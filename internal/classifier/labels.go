package classifier

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultLabels is the label set of the bundled fruit and vegetable model, in output order.
var DefaultLabels = []string{
	"capsicum", "sweetcorn", "orange", "tomato", "turnip", "ginger",
	"raddish", "pomegranate", "pineapple", "jalepeno", "apple", "carrot",
	"lettuce", "bell pepper", "eggplant", "beetroot", "kiwi", "pear",
	"cabbage", "cauliflower", "paprika", "lemon", "sweetpotato", "grapes",
	"cucumber", "corn", "banana", "garlic", "chilli pepper", "watermelon",
	"mango", "peas", "onion", "potato", "spinach", "soy beans",
}

// ReadLabels parses one label per line. Blank lines are skipped.
func ReadLabels(r io.Reader) ([]string, error) {
	var labels []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			labels = append(labels, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading labels: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("label file contains no labels")
	}
	return labels, nil
}

// LoadLabels reads labels from path, or returns a copy of DefaultLabels when path is empty.
func LoadLabels(path string) ([]string, error) {
	if path == "" {
		return append([]string(nil), DefaultLabels...), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open labels file: %w", err)
	}
	defer f.Close()
	return ReadLabels(f)
}
