// Package domain models user-drawn map regions and the rules that color them
// from hourly archive data.
//
// # Entities
//
// A Region is a closed shape of 3 to 12 vertices drawn on the map. Each region
// belongs to one DataSource, which names the hourly archive field to sample
// (e.g. "temperature_2m") and supplies the color used before any value has been
// computed. A region may outlive its data source; lookups that miss fall back to
// [DefaultColor].
//
// A ColorRule maps a threshold test over a data source's values to a display
// color. Rules are unordered and carry no uniqueness constraint.
//
// # Coordinates
//
// Vertices are (latitude, longitude) pairs in decimal degrees and serialize as
// two-element JSON arrays:
//
//	[[52.52, 13.40], [52.53, 13.41], [52.51, 13.42]]
//
// All geometry is planar. The centroid used as the sampling point is the
// arithmetic mean of latitudes and longitudes, not a geodesic center.
//
// # Sampling
//
// A value is sampled for one selected instant. The archive is queried for the
// calendar day containing that instant (midnight through the following
// midnight, both as YYYY-MM-DD) and the hourly sample at index instant.Hour()
// is used:
//
//	index present  -> series[hour]
//	index missing  -> series[0]
//	empty series   -> 20
//
// # Classification
//
// Candidate rules for a data source are evaluated in descending threshold
// order and the first satisfied rule wins, so overlapping rules resolve to the
// larger threshold:
//
//	rules:  < 10 cold | >= 10 mild | >= 25 hot
//	30 -> hot, 15 -> mild, 5 -> cold
//
// Equality ("=") matches when the value lies strictly within 0.1 of the
// threshold. With no matching rule the region gets [DefaultColor].
package domain
