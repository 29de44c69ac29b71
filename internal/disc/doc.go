// Package disc talks to the optical drive: tray status via ioctl, volume
// label via lsblk, and eject via the system utility.
package disc
