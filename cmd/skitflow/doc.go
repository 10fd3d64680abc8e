// Command skitflow is the pipeline CLI: one-shot pipeline runs plus
// store inspection and configuration utilities.
package main
