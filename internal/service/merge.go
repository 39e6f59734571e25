package service

import "github.com/brandonecarr/amosmiller-sub002/internal/domain"

// MergeCarts unions two carts by (product, variant). A line present on both
// sides keeps the local copy; remote-only lines follow the local ones in their
// remote order. Fulfillment is taken from local when it has a type.
func MergeCarts(local, remote domain.Snapshot) domain.Snapshot {
	items := domain.Normalize(domain.CloneItems(local.Items))

	seen := make(map[domain.ItemKey]struct{}, len(items))
	for _, item := range items {
		seen[item.Key()] = struct{}{}
	}
	for _, item := range domain.Normalize(domain.CloneItems(remote.Items)) {
		if _, ok := seen[item.Key()]; ok {
			continue
		}
		seen[item.Key()] = struct{}{}
		items = append(items, item)
	}

	fulfillment := remote.Fulfillment.Clone()
	if local.Fulfillment.Type != domain.FulfillmentUnset {
		fulfillment = local.Fulfillment.Clone()
	}

	return domain.Snapshot{Items: items, Fulfillment: fulfillment}
}
