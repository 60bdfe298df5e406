// Package probego orchestrates repeated electrical measurements across a
// grid of sample contacts and stores every result in an addressable
// dataset.
//
// A setup is three independent parts, joined by capability contracts:
//
//   - a Device exposing electrical Channels,
//   - a Measurement procedure producing records per contact,
//   - a ContactArray routing the device to one contact at a time.
//
// CheckCompatibility verifies the combination before anything touches
// storage: the measurement declares the channel capabilities it needs and
// the array type it assumes, and channels advertise capabilities
// structurally by implementing VoltageSource, VoltageSweeper or
// CurrentMeter.
//
// # Quick Start
//
//	st := store.New(blobs)
//	exp, err := probego.New(st, device, measurement, array, "sample-42",
//	    probego.WithLogger(probego.NewTextLogger(slog.LevelInfo)),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	go func() {
//	    for item := range exp.Stream().C() {
//	        plot(item.Contact, item.Record)
//	    }
//	}()
//
//	if err := exp.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	tables, md, _ := st.LoadDataset(ctx, exp.DatasetPath())
//
// A failing contact never aborts the run: it is recorded on the contact
// and the walk continues. Device faults and storage errors stop the run;
// Abort stops it cleanly at the next record boundary. Whatever was stored
// before the stop stays addressable.
//
// Datasets are addressed by measurement name, a configuration fingerprint
// and a timestamped entry, so identical setups cluster together and
// re-runs never collide. See the store package for loading and filtering.
package probego
