// Package bucket maps simulation results onto object storage.
//
// Every project owns one folder, <result-root>/<user-id>/<project-id>.
// The Manager creates that folder, hands out presigned upload and report
// URLs, and deletes the folder with everything in it.
package bucket
