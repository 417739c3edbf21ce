// Package latticeio reads and writes lattices for the tools built around the
// determinizer.
//
// Two encodings are supported. The text form is the usual one-line-per-arc listing
// ("src dst ilabel olabel graph,acoustic"), grouped under a key line and terminated
// by a blank line; compact lattices print their output labels on the weight
// ("src dst label graph,acoustic,l1_l2_l3"). The binary form is a protobuf message,
// encoded field by field with protowire:
//
//	message Lattice {
//	  sint64 start = 1;
//	  repeated State states = 2;
//	}
//	message State {
//	  fixed32 final_graph = 1;
//	  fixed32 final_acoustic = 2;
//	  bool is_final = 3;
//	  repeated Arc arcs = 4;
//	  repeated int32 final_labels = 5 [packed = true];
//	}
//	message Arc {
//	  int32 ilabel = 1;
//	  int32 olabel = 2;
//	  int32 nextstate = 3;
//	  fixed32 graph = 4;
//	  fixed32 acoustic = 5;
//	  repeated int32 labels = 6 [packed = true];
//	}
//
// Fields 5 of State and 6 of Arc are only written for compact lattices.
package latticeio
