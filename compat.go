package probego

import (
	"fmt"
	"slices"
)

// CheckCompatibility verifies that a device, measurement and contact array
// can work together:
//
//   - the measurement's assumed array type matches the interface;
//   - every channel capability the measurement requires is offered by the
//     device channel at the same index;
//   - selected contacts (if any) are a subset of the array's contacts.
//
// It returns a *CompatibilityError describing the first mismatch.
func CheckCompatibility(device Device, m Measurement, array ContactArray, selected []string) error {
	if want := m.ArrayType(); want != "" && want != array.ArrayType() {
		return &CompatibilityError{Reason: fmt.Sprintf(
			"measurement %q assumes array type %q, interface %q provides %q",
			m.Name(), want, array.Name(), array.ArrayType(),
		)}
	}

	channels := device.Channels()
	required := m.RequiredChannels()
	if len(channels) < len(required) {
		return &CompatibilityError{Reason: fmt.Sprintf(
			"measurement %q requires %d channels, device %q has %d",
			m.Name(), len(required), device.Name(), len(channels),
		)}
	}
	for i, caps := range required {
		for _, c := range caps {
			if !HasCapability(channels[i], c) {
				return &CompatibilityError{Reason: fmt.Sprintf(
					"channel %q of device %q lacks capability %s required by measurement %q",
					channels[i].Name(), device.Name(), c, m.Name(),
				)}
			}
		}
	}

	ids := array.ContactIDs()
	for _, id := range selected {
		if !slices.Contains(ids, id) {
			return &CompatibilityError{Reason: fmt.Sprintf(
				"contact %q is not part of interface %q", id, array.Name(),
			)}
		}
	}

	return nil
}
