// Package schema declares which relations and fields conditions may reference.
//
// The registry is populated once at process start (from the built-in
// logistics schema or a YAML file) and is read-only afterwards, so it can be
// shared by concurrent evaluations without locking.
package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/solatis/ordergate/internal/types"
)

// ErrInvalidDescriptor indicates a malformed relation or field descriptor.
var ErrInvalidDescriptor = errors.New("invalid schema descriptor")

// FieldDescriptor declares one field usable in conditions.
type FieldDescriptor struct {
	Key     string
	Type    types.ValueType
	Options []string // enumerated fields only

	optionSet map[string]struct{}
}

// HasOption reports whether v is one of the declared options.
// Options compare after trimming surrounding whitespace.
func (f *FieldDescriptor) HasOption(v string) bool {
	_, ok := f.optionSet[strings.TrimSpace(v)]
	return ok
}

// RelationDescriptor is the ordered field set of one logical entity.
type RelationDescriptor struct {
	Name   string
	Fields []FieldDescriptor
}

type relation struct {
	desc   RelationDescriptor
	fields map[string]*FieldDescriptor
}

// Registry owns relation descriptors keyed by name.
// Register is not safe for concurrent use; populate before sharing.
type Registry struct {
	relations map[string]*relation
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{relations: make(map[string]*relation)}
}

// Register adds or replaces a relation's field set. The descriptor is copied;
// later changes to the caller's slices do not affect the registry.
func (r *Registry) Register(desc RelationDescriptor) error {
	name := strings.TrimSpace(desc.Name)
	if name == "" {
		return fmt.Errorf("%w: relation name is empty", ErrInvalidDescriptor)
	}

	seen := make(map[string]struct{}, len(desc.Fields))
	fields := make([]FieldDescriptor, 0, len(desc.Fields))
	for _, f := range desc.Fields {
		if f.Key == "" {
			return fmt.Errorf("%w: %s has a field with an empty key", ErrInvalidDescriptor, name)
		}
		if _, dup := seen[f.Key]; dup {
			return fmt.Errorf("%w: %s.%s", types.ErrDuplicateFieldKey, name, f.Key)
		}
		seen[f.Key] = struct{}{}
		field, err := copyField(name, f)
		if err != nil {
			return err
		}
		fields = append(fields, field)
	}

	rel := &relation{
		desc:   RelationDescriptor{Name: name, Fields: fields},
		fields: make(map[string]*FieldDescriptor, len(fields)),
	}
	for i := range rel.desc.Fields {
		rel.fields[rel.desc.Fields[i].Key] = &rel.desc.Fields[i]
	}

	r.relations[name] = rel
	return nil
}

func copyField(relationName string, f FieldDescriptor) (FieldDescriptor, error) {
	switch f.Type {
	case types.ValueText, types.ValueNumber, types.ValueDate:
		if len(f.Options) > 0 {
			return FieldDescriptor{}, fmt.Errorf("%w: %s.%s declares options but is not enumerated", ErrInvalidDescriptor, relationName, f.Key)
		}
		return FieldDescriptor{Key: f.Key, Type: f.Type}, nil
	case types.ValueEnumerated:
		if len(f.Options) == 0 {
			return FieldDescriptor{}, fmt.Errorf("%w: enumerated field %s.%s has no options", ErrInvalidDescriptor, relationName, f.Key)
		}
		out := FieldDescriptor{
			Key:       f.Key,
			Type:      f.Type,
			Options:   make([]string, 0, len(f.Options)),
			optionSet: make(map[string]struct{}, len(f.Options)),
		}
		for _, opt := range f.Options {
			opt = strings.TrimSpace(opt)
			if _, dup := out.optionSet[opt]; dup {
				continue
			}
			out.Options = append(out.Options, opt)
			out.optionSet[opt] = struct{}{}
		}
		return out, nil
	default:
		return FieldDescriptor{}, fmt.Errorf("%w: %s.%s has type %q", types.ErrUnknownValueType, relationName, f.Key, f.Type)
	}
}

// ResolveField looks up a field by relation name and key.
func (r *Registry) ResolveField(relationName, fieldKey string) (*FieldDescriptor, error) {
	rel, ok := r.relations[relationName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownRelation, relationName)
	}
	f, ok := rel.fields[fieldKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", types.ErrUnknownField, relationName, fieldKey)
	}
	return f, nil
}

// Relation returns the descriptor registered under name.
func (r *Registry) Relation(name string) (RelationDescriptor, bool) {
	rel, ok := r.relations[name]
	if !ok {
		return RelationDescriptor{}, false
	}
	out := RelationDescriptor{Name: rel.desc.Name, Fields: make([]FieldDescriptor, len(rel.desc.Fields))}
	copy(out.Fields, rel.desc.Fields)
	return out, true
}

// RelationNames returns registered relation names in sorted order.
func (r *Registry) RelationNames() []string {
	names := make([]string, 0, len(r.relations))
	for name := range r.relations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
