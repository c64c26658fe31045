// Package postalconfig renders postal.yml, the configuration file Postal
// reads at startup.
//
// Rendering is a pure function of [Params]: every upstream value (database
// endpoint, credentials, secret key) is resolved by the caller first, then
// [Render] produces the document in one step. A missing value is a
// rendering error reported before anything reaches the cluster.
package postalconfig
