package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"canteen/internal/models"
)

// DecodeContainer decodes a raw container document whose array lives under
// listField.
func DecodeContainer[T models.Entry](raw bson.Raw, listField string) (models.Container[T], error) {
	var c models.Container[T]

	if v, err := raw.LookupErr("_id"); err == nil {
		if oid, ok := v.ObjectIDOK(); ok {
			c.ID = oid
		}
	}
	v, err := raw.LookupErr("theater")
	if err != nil {
		return c, fmt.Errorf("container missing theater: %w", err)
	}
	oid, ok := v.ObjectIDOK()
	if !ok {
		return c, errors.New("container theater is not an ObjectID")
	}
	c.Theater = oid

	c.Items = []T{}
	if v, err := raw.LookupErr(listField); err == nil {
		if err := v.Unmarshal(&c.Items); err != nil {
			return c, fmt.Errorf("cannot decode %s: %w", listField, err)
		}
	}
	if v, err := raw.LookupErr("metadata"); err == nil {
		_ = v.Unmarshal(&c.Metadata)
	}
	if v, err := raw.LookupErr("createdAt"); err == nil {
		if dt, ok := v.DateTimeOK(); ok {
			c.CreatedAt = time.UnixMilli(dt)
		}
	}
	if v, err := raw.LookupErr("updatedAt"); err == nil {
		if dt, ok := v.DateTimeOK(); ok {
			c.UpdatedAt = time.UnixMilli(dt)
		}
	}
	return c, nil
}

// EncodeContainer is the inverse of DecodeContainer.
func EncodeContainer[T models.Entry](c models.Container[T], listField string) (bson.Raw, error) {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	items := c.Items
	if items == nil {
		items = []T{}
	}
	return bson.Marshal(bson.D{
		{Key: "_id", Value: c.ID},
		{Key: "theater", Value: c.Theater},
		{Key: listField, Value: items},
		{Key: "metadata", Value: c.Metadata},
		{Key: "createdAt", Value: c.CreatedAt},
		{Key: "updatedAt", Value: c.UpdatedAt},
	})
}

// ApplyFields sets dotted-path fields on a copy of item by round-tripping it
// through BSON, the same shape a positional $set would touch.
func ApplyFields[T any](item T, fields map[string]any) (T, error) {
	var out T
	data, err := bson.Marshal(item)
	if err != nil {
		return out, err
	}
	var doc bson.M
	if err := bson.Unmarshal(data, &doc); err != nil {
		return out, err
	}
	for path, value := range fields {
		setPath(doc, strings.Split(path, "."), value)
	}
	data, err = bson.Marshal(doc)
	if err != nil {
		return out, err
	}
	if err := bson.Unmarshal(data, &out); err != nil {
		return out, err
	}
	return out, nil
}

// MatchFields reports whether every field in match equals the item's value.
func MatchFields(item any, match map[string]any) (bool, error) {
	data, err := bson.Marshal(item)
	if err != nil {
		return false, err
	}
	raw := bson.Raw(data)
	for path, want := range match {
		got, err := raw.LookupErr(strings.Split(path, ".")...)
		if err != nil {
			return false, nil
		}
		wantType, wantData, err := bson.MarshalValue(want)
		if err != nil {
			return false, err
		}
		if got.Type != wantType || string(got.Value) != string(wantData) {
			return false, nil
		}
	}
	return true, nil
}

func setPath(doc bson.M, path []string, value any) {
	if len(path) == 1 {
		doc[path[0]] = value
		return
	}
	var next bson.M
	switch typed := doc[path[0]].(type) {
	case bson.M:
		next = typed
	case primitive.D:
		next = typed.Map()
	default:
		next = bson.M{}
	}
	doc[path[0]] = next
	setPath(next, path[1:], value)
}
