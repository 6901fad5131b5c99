// Package graph defines the design graph produced by evaluating a
// script: sheets, their placements, finger joints between them, named
// attachment points and assemblies. The graph is plain data; the
// assembler turns it into solids.
package graph
