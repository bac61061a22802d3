package reconcile

import (
	"github.com/roach88/entsync/internal/ir"
	"github.com/roach88/entsync/internal/keypath"
	"github.com/roach88/entsync/internal/schema"
)

// mapProperties copies scalar properties from payload onto entity.
//
// An absent key leaves the field untouched and an explicit null clears it.
// A value the transformer rejects leaves the field untouched.
func (r *Reconciler[E]) mapProperties(entity E, desc *schema.EntityDescription, payload ir.IRObject) {
	for _, prop := range desc.Properties {
		raw, ok := keypath.Resolve(prop.Key, payload)
		if !ok {
			continue
		}
		if ir.IsNull(raw) {
			entity.Clear(prop.Name)
			r.logger.Debug("property cleared", "entity", desc.Name, "property", prop.Name)
			continue
		}

		value := raw
		if prop.Transformer != "" {
			if !r.transformers.Has(prop.Transformer) {
				r.logger.Warn("unknown transformer",
					"entity", desc.Name,
					"property", prop.Name,
					"transformer", prop.Transformer,
				)
				r.observer.TransformFailed(desc.Name, prop.Name, prop.Transformer)
				continue
			}
			converted, ok := r.transformers.Apply(prop.Transformer, raw)
			if !ok {
				r.logger.Debug("transform failed",
					"entity", desc.Name,
					"property", prop.Name,
					"transformer", prop.Transformer,
				)
				r.observer.TransformFailed(desc.Name, prop.Name, prop.Transformer)
				continue
			}
			value = converted
		}
		entity.Set(prop.Name, value)
	}
}
