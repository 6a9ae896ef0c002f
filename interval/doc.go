/*Package interval implements the interval operations the phaser needs on
  genomic coordinates: single 0-based half-open entries, samtools-style region
  strings, and per-contig interval unions used for excluded bands.
  (Note the 'union'.  Overlapping intervals are merged, not tracked
  separately.)
*/
package interval
