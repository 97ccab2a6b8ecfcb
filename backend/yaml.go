package backend

import "gopkg.in/yaml.v3"

// MarshalYAML encodes the Set as the list of enabled flag names.
func (s Set) MarshalYAML() (any, error) {
	names := make([]string, 0, len(order))
	for _, f := range s.List() {
		names = append(names, string(f))
	}
	return names, nil
}

// UnmarshalYAML decodes a list of flag names.
func (s *Set) UnmarshalYAML(node *yaml.Node) error {
	var names []string
	if err := node.Decode(&names); err != nil {
		return err
	}
	parsed, err := Parse(names)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
