/*
Package snapshot infers the shape of live guest data structures and renders
bounded structural descriptions for debugging visualization.

# Overview

After a guest program runs, its namespace is inspected through the runtime's
own introspection surface, lifted into a small tagged union (Value) and fed
to a classifier that tries, in priority order:

 1. node with next + value attributes  -> linked list
 2. node with left/right attributes    -> tree
 3. children map + terminal flag       -> trie (rendered as a tree)
 4. mapping of sequences               -> graph
 5. sequence named like a heap         -> heap (rendered as tree + array)
 6. sequence                           -> array
 7. mapping                            -> one annotated node

The first match wins, and one level of attribute nesting on composite
instances is inspected the same way. A node registry deduplicates by object
identity and caps at 50 entries, setting truncated rather than erroring, so
payload size is bounded regardless of guest topology, including cycles.

Marker detection separately scans for conventionally-named pointer
variables, visited-order containers and cycle flags.

# Invariants

The extractor recognizes a small set of canonical implementations (linked
list, growable array list, ring-buffer queue) by characteristic attributes
and records kind-specific consistency checks with bounded traversal.
Unclassifiable instances yield no invariants, which is not an error.

# Failure policy

Everything here is a debugging aid: every inspection step is independently
guarded and the package never raises regardless of adversarial guest
content. Failures degrade to "no visualization available".
*/
package snapshot
