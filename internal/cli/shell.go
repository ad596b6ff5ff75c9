package cli

// shellInitScript wraps featwt so that "featwt switch" changes the calling
// shell's directory. Works in bash, zsh and other POSIX shells.
const shellInitScript = `featwt() {
  if [ "$1" = "switch" ] && [ $# -gt 1 ]; then
    shift
    __featwt_dir="$(command featwt --format text switch "$@")" || return $?
    cd "$__featwt_dir" || return $?
    unset __featwt_dir
  else
    command featwt "$@"
  fi
}
`
