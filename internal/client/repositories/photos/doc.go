// Package photos holds photo blobs captured on the device until the upload
// queued for them is confirmed. They are queue data, so nothing here evicts
// them under storage pressure.
package photos
