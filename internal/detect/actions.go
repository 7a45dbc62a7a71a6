package detect

import "github.com/Serrowxd/fluxor-sub001/pkg/retail"

// Actions suggests responses to an anomaly, ordered from routine to urgent.
// deviation's sign distinguishes above-baseline from below-baseline cases;
// higher severity appends more urgent suggestions to the base list.
func Actions(domain retail.Domain, deviation float64, severity retail.Severity) []string {
	below := deviation < 0
	urgent := severity.Rank() >= retail.SeverityHigh.Rank()
	critical := severity == retail.SeverityCritical

	var actions []string
	switch domain {
	case retail.DomainInventory:
		if below {
			actions = []string{
				"Review reorder point and safety stock",
				"Check inbound purchase orders",
			}
			if urgent {
				actions = append(actions, "Expedite replenishment for the affected warehouse")
			}
			if critical {
				actions = append(actions, "Place urgent reorder to avoid stockout")
			}
		} else {
			actions = []string{
				"Audit recent receipts for double counting",
				"Review storage capacity and carrying cost",
			}
			if urgent {
				actions = append(actions, "Plan markdown or inter-warehouse transfer to reduce overstock")
			}
		}

	case retail.DomainSales:
		if below {
			actions = []string{
				"Review pricing and product quality",
				"Check listing availability across channels",
			}
			if urgent {
				actions = append(actions, "Investigate competitor or channel changes")
			}
		} else {
			actions = []string{
				"Verify the demand spike is genuine",
				"Check stock cover for the surge",
			}
			if urgent {
				actions = append(actions, "Increase replenishment orders")
			}
		}

	case retail.DomainDemand:
		actions = []string{"Review forecast model inputs"}
		if urgent {
			actions = append(actions, "Check for market events or unrecorded promotions")
		}
		if critical {
			actions = append(actions, "Recalibrate forecasting model weights")
		}

	case retail.DomainPrice:
		if below {
			actions = []string{
				"Check for data-entry errors",
				"Confirm promotional pricing was intended",
			}
		} else {
			actions = []string{"Verify margin against pricing policy"}
		}
		if urgent {
			actions = append(actions, "Escalate to pricing review")
		}

	case retail.DomainOrder:
		actions = []string{"Flag order for manual review"}
		if urgent {
			actions = append(actions, "Hold fulfillment pending verification")
		}
		if critical {
			actions = append(actions, "Contact customer to confirm the order")
		}

	default:
		actions = []string{"Investigate unusual activity"}
	}
	return actions
}
