// Package address models the subjects of the example build world:
// addresses, directories, command line specs and the targets declared in
// BUILD files.
//
// A build root is a tree of directories. Each directory may hold a
// BUILD.yaml and/or a BUILD.cue file declaring named targets; together they
// form the directory's AddressFamily. A target is addressed as "dir:name",
// where a bare "dir" names the target sharing the directory's base name.
//
// Command line specs select addresses:
//
//	src/java/simple          one address (SingleAddress)
//	3rdparty/jvm:            every target in a directory (SiblingAddresses)
//	3rdparty/jvm::           every target below a directory (DescendantAddresses)
package address
